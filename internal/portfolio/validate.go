package portfolio

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Upload ceilings per media family.
const (
	MaxImageSize = 5 * 1024 * 1024
	MaxVideoSize = 50 * 1024 * 1024
	MaxPDFSize   = 10 * 1024 * 1024
)

// Validation messages are the original user-facing strings and part of the
// stable contract; do not translate.
const (
	msgTitleRequired      = "Название работы обязательно"
	msgTitleTooLong       = "Название не должно превышать 200 символов"
	msgContentTypeInvalid = "Недопустимый тип контента"
	msgLinkURLRequired    = "Для ссылки требуется URL"
	msgVideoRequired      = "Для видео требуется URL или файл"
	msgPDFRequired        = "Для PDF требуется файл"
	msgGalleryNotList     = "Галерея должна содержать список изображений"
	msgTextFieldRequired  = "Для текстового контента требуется поле text"
	msgHexColorInvalid    = "Неверный формат hex-цвета. Используйте формат #RRGGBB или #RGB"

	msgFileNotImage = "Файл должен быть изображением"
	msgFileNotVideo = "Файл должен быть видео"
	msgFileNotPDF   = "Файл должен быть PDF"
)

var (
	hexColorPattern  = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
	socialURLPattern = regexp.MustCompile(`^https?://.+`)
)

// ValidateTitle trims surrounding whitespace and enforces the presence and
// length rules. Returns the trimmed title.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", newValidationError("title", msgTitleRequired)
	}
	if utf8.RuneCountInString(trimmed) > 200 {
		return "", newValidationError("title", msgTitleTooLong)
	}
	return trimmed, nil
}

// ValidateContentData applies the per-content-type rules to data and returns
// it unchanged when valid.
//
// hasAttachment is true when the request carries the matching file upload
// (video_file / pdf_file), which satisfies the video and pdf requirements in
// place of a url/file reference. hasExisting is true on update of an already
// stored item: a brand-new item with an absent-and-empty payload is treated
// as "not yet filled" and tolerated.
func ValidateContentData(contentType ContentType, data ContentData, hasAttachment, hasExisting bool) error {
	if !contentType.Valid() {
		return newValidationError("content_type", msgContentTypeInvalid)
	}

	switch contentType {
	case ContentTypeImage:
		// the image itself is a file upload, validated separately
	case ContentTypeVideo:
		if data.stringField("url") == "" && !hasAttachment {
			if hasExisting && len(data) > 0 {
				return newValidationError("content_data", msgVideoRequired)
			}
		}
	case ContentTypeLink:
		if data.stringField("url") == "" {
			return newValidationError("content_data", msgLinkURLRequired)
		}
	case ContentTypeGallery:
		if images, ok := data["images"]; ok {
			if _, isList := images.([]any); !isList {
				return newValidationError("content_data", msgGalleryNotList)
			}
		}
	case ContentTypePDF:
		if data.stringField("file") == "" && !hasAttachment {
			if hasExisting && len(data) > 0 {
				return newValidationError("content_data", msgPDFRequired)
			}
		}
	case ContentTypeText:
		if len(data) > 0 {
			if _, ok := data["text"]; !ok {
				return newValidationError("content_data", msgTextFieldRequired)
			}
		}
	}
	return nil
}

// ValidateHexColor accepts #RGB and #RRGGBB (case-insensitive). Empty values
// pass: absent colors are fine, malformed ones are not.
func ValidateHexColor(value string) error {
	if value == "" {
		return nil
	}
	if !hexColorPattern.MatchString(value) {
		return newValidationError("color_scheme", msgHexColorInvalid)
	}
	return nil
}

// ValidateColorScheme checks the five named palette entries. Extra keys are
// stored verbatim without validation.
func ValidateColorScheme(scheme ColorScheme) error {
	for _, value := range []string{
		scheme.Primary, scheme.Secondary, scheme.Accent, scheme.Text, scheme.Background,
	} {
		if err := ValidateHexColor(value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSocialLinks requires every non-empty value to be an absolute
// http(s) URL.
func ValidateSocialLinks(links map[string]string) error {
	for key, url := range links {
		if url != "" && !socialURLPattern.MatchString(url) {
			return newValidationError("social_links", fmt.Sprintf("Неверный URL для %s: %s", key, url))
		}
	}
	return nil
}

// NormalizeWebsite prefixes a bare website value with https:// instead of
// rejecting it.
func NormalizeWebsite(value string) string {
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}
	return "https://" + value
}

// ValidateImageUpload checks an item image or portfolio avatar: media family
// image/* and the 5 MB ceiling.
func ValidateImageUpload(mediaType string, size int64) error {
	if !strings.HasPrefix(mediaType, "image/") {
		return newValidationError("image", msgFileNotImage)
	}
	if size > MaxImageSize {
		return newValidationError("image",
			fmt.Sprintf("Размер изображения не должен превышать %dMB", MaxImageSize/(1024*1024)))
	}
	return nil
}

// ValidateAvatarUpload is ValidateImageUpload with the avatar-specific size
// message the profile editor shows.
func ValidateAvatarUpload(mediaType string, size int64) error {
	if !strings.HasPrefix(mediaType, "image/") {
		return newValidationError("avatar", msgFileNotImage)
	}
	if size > MaxImageSize {
		return newValidationError("avatar",
			fmt.Sprintf("Размер файла не должен превышать %dMB", MaxImageSize/(1024*1024)))
	}
	return nil
}

// ValidateVideoUpload checks media family video/* and the 50 MB ceiling.
func ValidateVideoUpload(mediaType string, size int64) error {
	if !strings.HasPrefix(mediaType, "video/") {
		return newValidationError("video_file", msgFileNotVideo)
	}
	if size > MaxVideoSize {
		return newValidationError("video_file",
			fmt.Sprintf("Размер видео не должен превышать %dMB", MaxVideoSize/(1024*1024)))
	}
	return nil
}

// ValidatePDFUpload requires exactly application/pdf and the 10 MB ceiling.
func ValidatePDFUpload(mediaType string, size int64) error {
	if mediaType != "application/pdf" {
		return newValidationError("pdf_file", msgFileNotPDF)
	}
	if size > MaxPDFSize {
		return newValidationError("pdf_file",
			fmt.Sprintf("Размер PDF не должен превышать %dMB", MaxPDFSize/(1024*1024)))
	}
	return nil
}

// DecodeJSONField interprets a form value destined for a jsonb column. Valid
// JSON passes through untouched; anything else is stored as a JSON string of
// the raw value. The original editor depends on this fallback for data it
// already round-trips, so it is kept (see DESIGN.md).
func DecodeJSONField(raw string) []byte {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return []byte(trimmed)
	}
	quoted, err := json.Marshal(raw)
	if err != nil {
		return []byte(`""`)
	}
	return quoted
}
