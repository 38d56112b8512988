package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"craftfolio/internal/database"
	"craftfolio/internal/portfolio"
)

// TemplateHandler serves the public template catalog plus the admin
// management endpoints.
type TemplateHandler struct {
	db        *gorm.DB
	templates *portfolio.TemplateStore
	uploader  *uploader
	storage   blobStorage
}

func NewTemplateHandler(db *gorm.DB, storageClient blobStorage, clamdAddr string) *TemplateHandler {
	return &TemplateHandler{
		db:        db,
		templates: portfolio.NewTemplateStore(db),
		uploader:  &uploader{storage: storageClient, clamdAddr: clamdAddr},
		storage:   storageClient,
	}
}

type templateResponse struct {
	ID              uint           `json:"id"`
	Name            string         `json:"name"`
	PreviewImageURL string         `json:"preview_image_url,omitempty"`
	Config          datatypes.JSON `json:"config"`
	IsActive        bool           `json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (h *TemplateHandler) newTemplateResponse(c *gin.Context, tpl *database.Template) templateResponse {
	config := tpl.Config
	if len(config) == 0 {
		config = datatypes.JSON([]byte("{}"))
	}
	return templateResponse{
		ID:              tpl.ID,
		Name:            tpl.Name,
		PreviewImageURL: presignedOrEmpty(c.Request.Context(), h.storage, tpl.PreviewImageKey),
		Config:          config,
		IsActive:        tpl.IsActive,
		CreatedAt:       tpl.CreatedAt,
	}
}

// List returns the active templates, newest first.
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.ListActive(c.Request.Context())
	if err != nil {
		requestLogger(c).Error("list templates failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	resp := make([]templateResponse, 0, len(templates))
	for i := range templates {
		resp = append(resp, h.newTemplateResponse(c, &templates[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns one active template. Inactive templates are indistinguishable
// from missing ones.
func (h *TemplateHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, "Шаблон не найден")
		return
	}

	tpl, err := h.templates.GetActive(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			NotFound(c, "Шаблон не найден")
			return
		}
		requestLogger(c).Error("get template failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, h.newTemplateResponse(c, tpl))
}

// AdminCreate adds a template to the catalog.
func (h *TemplateHandler) AdminCreate(c *gin.Context) {
	name, _ := formValue(c, "name")
	name = strings.TrimSpace(name)
	if name == "" {
		BadRequest(c, "Название шаблона обязательно")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c)

	tpl := database.Template{
		Name:     name,
		Config:   datatypes.JSON([]byte("{}")),
		IsActive: true,
	}
	if v, ok := formValue(c, "config"); ok {
		tpl.Config = datatypes.JSON(portfolio.DecodeJSONField(v))
	}

	if file, err := c.FormFile("preview_image"); err == nil && file != nil {
		if err := portfolio.ValidateImageUpload(uploadMediaType(file), file.Size); err != nil {
			DomainError(c, err, "internal error")
			return
		}
		objectKey := "templates/" + strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + file.Filename
		if err := h.uploader.store(ctx, file, objectKey); err != nil {
			logger.Error("template preview upload failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		tpl.PreviewImageKey = objectKey
	}

	if err := h.db.WithContext(ctx).Create(&tpl).Error; err != nil {
		logger.Error("create template failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusCreated, h.newTemplateResponse(c, &tpl))
}

// AdminUpdate applies a partial update to a template.
func (h *TemplateHandler) AdminUpdate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, "Шаблон не найден")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c)

	var tpl database.Template
	if err := h.db.WithContext(ctx).First(&tpl, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Шаблон не найден")
			return
		}
		logger.Error("load template failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	updates := map[string]any{}
	if v, ok := formValue(c, "name"); ok {
		name := strings.TrimSpace(v)
		if name == "" {
			BadRequest(c, "Название шаблона обязательно")
			return
		}
		updates["name"] = name
	}
	if v, ok := formValue(c, "config"); ok {
		updates["config"] = datatypes.JSON(portfolio.DecodeJSONField(v))
	}
	if v, ok := formValue(c, "is_active"); ok {
		active, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			updates["is_active"] = active
		}
	}

	if file, err := c.FormFile("preview_image"); err == nil && file != nil {
		if err := portfolio.ValidateImageUpload(uploadMediaType(file), file.Size); err != nil {
			DomainError(c, err, "internal error")
			return
		}
		objectKey := "templates/" + strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + file.Filename
		if err := h.uploader.store(ctx, file, objectKey); err != nil {
			logger.Error("template preview upload failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		updates["preview_image_key"] = objectKey
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(&tpl).Updates(updates).Error; err != nil {
			logger.Error("update template failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		if err := h.db.WithContext(ctx).First(&tpl, tpl.ID).Error; err != nil {
			logger.Error("reload template failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
	}

	c.JSON(http.StatusOK, h.newTemplateResponse(c, &tpl))
}

// AdminDeactivate hides a template from the catalog. Portfolios that already
// reference it keep working because nothing is deleted.
func (h *TemplateHandler) AdminDeactivate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, "Шаблон не найден")
		return
	}

	ctx := c.Request.Context()
	result := h.db.WithContext(ctx).
		Model(&database.Template{}).
		Where("id = ?", uint(id)).
		Update("is_active", false)
	if result.Error != nil {
		requestLogger(c).Error("deactivate template failed", slog.Any("error", result.Error))
		Internal(c, "internal error")
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "Шаблон не найден")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
