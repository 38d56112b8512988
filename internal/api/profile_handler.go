package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"craftfolio/internal/database"
	"craftfolio/internal/portfolio"
)

// ProfileHandler serves the authenticated user's own profile.
type ProfileHandler struct {
	db       *gorm.DB
	uploader *uploader
	storage  blobStorage
}

func NewProfileHandler(db *gorm.DB, storageClient blobStorage, clamdAddr string) *ProfileHandler {
	return &ProfileHandler{
		db:       db,
		uploader: &uploader{storage: storageClient, clamdAddr: clamdAddr},
		storage:  storageClient,
	}
}

// Get returns the current user's profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c)
			return
		}
		requestLogger(c).Error("load profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, newUserResponse(ctx, h.storage, user))
}

// Update applies a partial multipart update to the profile. Absent fields are
// left untouched; an uploaded avatar replaces the previous object.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c).With(slog.Uint64("user_id", uint64(userID)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c)
			return
		}
		logger.Error("load profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	updates := map[string]any{}

	if username, ok := formValue(c, "username"); ok {
		username = strings.TrimSpace(username)
		if username == "" {
			BadRequest(c, "Имя пользователя обязательно")
			return
		}
		if username != user.Username {
			var count int64
			if err := h.db.WithContext(ctx).Model(&database.User{}).
				Where("username = ? AND id <> ?", username, user.ID).
				Count(&count).Error; err != nil {
				logger.Error("username lookup failed", slog.Any("error", err))
				Internal(c, "internal error")
				return
			}
			if count > 0 {
				Conflict(c, "Это имя пользователя уже занято")
				return
			}
			updates["username"] = username
		}
	}
	if v, ok := formValue(c, "first_name"); ok {
		updates["first_name"] = strings.TrimSpace(v)
	}
	if v, ok := formValue(c, "last_name"); ok {
		updates["last_name"] = strings.TrimSpace(v)
	}
	if v, ok := formValue(c, "bio"); ok {
		updates["bio"] = strings.TrimSpace(v)
	}
	if v, ok := formValue(c, "phone"); ok {
		updates["phone"] = strings.TrimSpace(v)
	}
	if v, ok := formValue(c, "website"); ok {
		updates["website"] = portfolio.NormalizeWebsite(v)
	}

	oldAvatarKey := ""
	if file, err := c.FormFile("avatar"); err == nil && file != nil {
		if err := portfolio.ValidateAvatarUpload(uploadMediaType(file), file.Size); err != nil {
			DomainError(c, err, "internal error")
			return
		}
		objectKey := objectKeyFor(userID, file.Filename)
		if err := h.uploader.store(ctx, file, objectKey); err != nil {
			if errors.Is(err, errMaliciousUpload) {
				BadRequest(c, "Файл не прошел проверку безопасности")
				return
			}
			logger.Error("avatar upload failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		oldAvatarKey = user.AvatarKey
		updates["avatar_key"] = objectKey
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			logger.Error("update profile failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
			logger.Error("reload profile failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
	}

	// Old avatar object is orphaned once the row points elsewhere.
	if oldAvatarKey != "" && oldAvatarKey != user.AvatarKey {
		if err := h.storage.DeleteObject(ctx, oldAvatarKey); err != nil {
			logger.Warn("delete old avatar failed", slog.Any("error", err))
		}
	}

	c.JSON(http.StatusOK, newUserResponse(ctx, h.storage, user))
}

// formValue reports a form field and whether the client sent it at all, so
// partial updates can tell "absent" from "set to empty".
func formValue(c *gin.Context, key string) (string, bool) {
	if c.Request == nil {
		return "", false
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		if err := c.Request.ParseForm(); err != nil {
			return "", false
		}
	}
	if c.Request.MultipartForm != nil {
		if values, ok := c.Request.MultipartForm.Value[key]; ok && len(values) > 0 {
			return values[0], true
		}
	}
	if values, ok := c.Request.PostForm[key]; ok && len(values) > 0 {
		return values[0], true
	}
	return "", false
}
