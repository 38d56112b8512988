package portfolio

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// ContentType selects which shape an item's content_data must take. The
// string values are part of the stable serialization contract.
type ContentType string

const (
	ContentTypeImage   ContentType = "image"
	ContentTypeVideo   ContentType = "video"
	ContentTypeLink    ContentType = "link"
	ContentTypeGallery ContentType = "gallery"
	ContentTypePDF     ContentType = "pdf"
	ContentTypeText    ContentType = "text"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeImage, ContentTypeVideo, ContentTypeLink,
		ContentTypeGallery, ContentTypePDF, ContentTypeText:
		return true
	}
	return false
}

// ContentData is the content_type-dependent payload of an item.
type ContentData map[string]any

// ParseContentData decodes raw JSON into a ContentData record. Anything that
// is not a JSON object is coerced to an empty record rather than rejected:
// validation then runs against the empty record, so a malformed client
// payload degrades instead of hard-failing the whole update.
func ParseContentData(raw []byte) ContentData {
	if len(raw) == 0 {
		return ContentData{}
	}
	var data ContentData
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return ContentData{}
	}
	return data
}

// JSON serializes the record for the jsonb column. A nil record becomes an
// empty object, never NULL.
func (d ContentData) JSON() datatypes.JSON {
	if len(d) == 0 {
		return datatypes.JSON([]byte("{}"))
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

func (d ContentData) stringField(key string) string {
	if d == nil {
		return ""
	}
	s, _ := d[key].(string)
	return s
}

// ColorScheme is the named palette of a portfolio. Extra keeps any
// additional keys the editor stores alongside the known ones, so unknown
// fields round-trip untouched.
type ColorScheme struct {
	Primary    string
	Secondary  string
	Accent     string
	Text       string
	Background string
	Extra      map[string]json.RawMessage
}

var colorSchemeFields = map[string]func(*ColorScheme) *string{
	"primary_color":    func(c *ColorScheme) *string { return &c.Primary },
	"secondary_color":  func(c *ColorScheme) *string { return &c.Secondary },
	"accent_color":     func(c *ColorScheme) *string { return &c.Accent },
	"text_color":       func(c *ColorScheme) *string { return &c.Text },
	"background_color": func(c *ColorScheme) *string { return &c.Background },
}

// UnmarshalJSON splits the object into the named color fields and Extra.
func (c *ColorScheme) UnmarshalJSON(raw []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	for key, value := range obj {
		if field, ok := colorSchemeFields[key]; ok {
			var s string
			if err := json.Unmarshal(value, &s); err == nil {
				*field(c) = s
				continue
			}
		}
		if c.Extra == nil {
			c.Extra = map[string]json.RawMessage{}
		}
		c.Extra[key] = value
	}
	return nil
}

// MarshalJSON re-merges the named fields with Extra. Empty named fields are
// omitted so the stored object stays as sparse as it arrived.
func (c ColorScheme) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(c.Extra)+5)
	for key, value := range c.Extra {
		obj[key] = value
	}
	set := func(key, value string) error {
		if value == "" {
			return nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		obj[key] = raw
		return nil
	}
	if err := set("primary_color", c.Primary); err != nil {
		return nil, err
	}
	if err := set("secondary_color", c.Secondary); err != nil {
		return nil, err
	}
	if err := set("accent_color", c.Accent); err != nil {
		return nil, err
	}
	if err := set("text_color", c.Text); err != nil {
		return nil, err
	}
	if err := set("background_color", c.Background); err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}
