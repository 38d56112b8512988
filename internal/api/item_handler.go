package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
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

// ItemHandler serves portfolio item CRUD and reordering.
type ItemHandler struct {
	items    *portfolio.ItemStore
	uploader *uploader
	storage  blobStorage
}

func NewItemHandler(db *gorm.DB, storageClient blobStorage, clamdAddr string) *ItemHandler {
	return &ItemHandler{
		items:    portfolio.NewItemStore(db),
		uploader: &uploader{storage: storageClient, clamdAddr: clamdAddr},
		storage:  storageClient,
	}
}

type itemResponse struct {
	ID          uint           `json:"id"`
	PortfolioID uint           `json:"portfolio_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url,omitempty"`
	Order       int            `json:"order"`
	ContentType string         `json:"content_type"`
	ContentData datatypes.JSON `json:"content_data"`
	Category    string         `json:"category"`
	Tags        datatypes.JSON `json:"tags"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func newItemResponse(ctx context.Context, storage blobStorage, item *database.PortfolioItem) itemResponse {
	contentData := item.ContentData
	if len(contentData) == 0 {
		contentData = datatypes.JSON([]byte("{}"))
	}
	tags := item.Tags
	if len(tags) == 0 {
		tags = datatypes.JSON([]byte("[]"))
	}
	return itemResponse{
		ID:          item.ID,
		PortfolioID: item.PortfolioID,
		Title:       item.Title,
		Description: item.Description,
		ImageURL:    presignedOrEmpty(ctx, storage, item.ImageKey),
		Order:       item.Order,
		ContentType: item.ContentType,
		ContentData: contentData,
		Category:    item.Category,
		Tags:        tags,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

// List returns the caller's items for one portfolio, optionally narrowed by
// content_type.
func (h *ItemHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		Unauthorized(c)
		return
	}

	portfolioID, err := strconv.ParseUint(c.Query("portfolio"), 10, 64)
	if err != nil {
		BadRequest(c, "Не указан portfolio")
		return
	}

	ctx := c.Request.Context()
	items, err := h.items.List(ctx, userID, uint(portfolioID), c.Query("content_type"))
	if err != nil {
		if !errors.Is(err, portfolio.ErrNotFound) {
			requestLogger(c).Error("list items failed", slog.Any("error", err))
		}
		DomainError(c, err, "internal error")
		return
	}

	resp := make([]itemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, newItemResponse(ctx, h.storage, &items[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Create adds an item to the caller's portfolio. A video_file or pdf_file
// upload satisfies the content requirement for those types; the file lands in
// blob storage before the row is written.
func (h *ItemHandler) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		Unauthorized(c)
		return
	}

	portfolioIDRaw, ok := formValue(c, "portfolio")
	if !ok {
		BadRequest(c, "Не указан portfolio")
		return
	}
	portfolioID, err := strconv.ParseUint(strings.TrimSpace(portfolioIDRaw), 10, 64)
	if err != nil {
		BadRequest(c, "Не указан portfolio")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c).With(slog.Uint64("user_id", uint64(userID)))

	input, uploadedKeys, ok := h.buildItemInput(c, userID)
	if !ok {
		return
	}

	item, err := h.items.Create(ctx, userID, uint(portfolioID), input)
	if err != nil {
		h.cleanupUploads(ctx, logger, uploadedKeys)
		if !portfolio.IsValidation(err) && !errors.Is(err, portfolio.ErrNotFound) {
			logger.Error("create item failed", slog.Any("error", err))
		}
		DomainError(c, err, "internal error")
		return
	}

	c.JSON(http.StatusCreated, newItemResponse(ctx, h.storage, item))
}

// Update applies a partial multipart update to an owned item.
func (h *ItemHandler) Update(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		Unauthorized(c)
		return
	}

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, "not found")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c).With(slog.Uint64("user_id", uint64(userID)))

	input, uploadedKeys, ok := h.buildItemInput(c, userID)
	if !ok {
		return
	}

	item, err := h.items.Update(ctx, userID, uint(itemID), input)
	if err != nil {
		h.cleanupUploads(ctx, logger, uploadedKeys)
		if !portfolio.IsValidation(err) && !errors.Is(err, portfolio.ErrNotFound) {
			logger.Error("update item failed", slog.Any("error", err))
		}
		DomainError(c, err, "internal error")
		return
	}

	c.JSON(http.StatusOK, newItemResponse(ctx, h.storage, item))
}

// Delete removes an owned item and its stored image.
func (h *ItemHandler) Delete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		Unauthorized(c)
		return
	}

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, "not found")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c).With(slog.Uint64("user_id", uint64(userID)))

	item, err := h.items.Delete(ctx, userID, uint(itemID))
	if err != nil {
		if !errors.Is(err, portfolio.ErrNotFound) {
			logger.Error("delete item failed", slog.Any("error", err))
		}
		DomainError(c, err, "internal error")
		return
	}

	if item.ImageKey != "" {
		if err := h.storage.DeleteObject(ctx, item.ImageKey); err != nil {
			logger.Warn("delete item image failed", slog.Any("error", err))
		}
	}

	c.Status(http.StatusNoContent)
}

type reorderRequest struct {
	Portfolio json.RawMessage `json:"portfolio"`
	ItemIDs   json.RawMessage `json:"item_ids"`
}

// Reorder rewrites item positions from the submitted id sequence. An item's
// new order is its index in the list; ids that are unparsable, zero or not in
// the portfolio are skipped without failing the rest.
func (h *ItemHandler) Reorder(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		Unauthorized(c)
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "item_ids должен быть списком")
		return
	}

	portfolioID, ok := coerceID(req.Portfolio)
	if !ok || portfolioID == 0 {
		BadRequest(c, "Не указан portfolio")
		return
	}

	var rawIDs []json.RawMessage
	if len(req.ItemIDs) == 0 || json.Unmarshal(req.ItemIDs, &rawIDs) != nil {
		BadRequest(c, "item_ids должен быть списком")
		return
	}

	ids := make([]uint, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, ok := coerceID(raw)
		if !ok {
			id = 0
		}
		ids = append(ids, id)
	}

	ctx := c.Request.Context()
	updated, err := h.items.Reorder(ctx, userID, portfolioID, ids)
	if err != nil {
		if !errors.Is(err, portfolio.ErrNotFound) {
			requestLogger(c).Error("reorder items failed", slog.Any("error", err))
		}
		DomainError(c, err, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated_count": updated})
}

// coerceID accepts a JSON number or a numeric string. Anything else fails.
func coerceID(raw json.RawMessage) (uint, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return uint(n), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}

// buildItemInput reads the multipart form into an ItemInput, uploading any
// attached files first. It writes the error response itself; the second return
// lists object keys to delete if the row write later fails.
func (h *ItemHandler) buildItemInput(c *gin.Context, userID uint) (portfolio.ItemInput, []string, bool) {
	var input portfolio.ItemInput
	var uploadedKeys []string

	ctx := c.Request.Context()
	logger := requestLogger(c).With(slog.Uint64("user_id", uint64(userID)))

	if v, ok := formValue(c, "title"); ok {
		input.Title = &v
	}
	if v, ok := formValue(c, "description"); ok {
		input.Description = &v
	}
	if v, ok := formValue(c, "content_type"); ok {
		trimmed := strings.TrimSpace(v)
		input.ContentType = &trimmed
	}
	if v, ok := formValue(c, "category"); ok {
		input.Category = &v
	}
	if v, ok := formValue(c, "order"); ok {
		order, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			input.Order = &order
		}
	}
	if v, ok := formValue(c, "tags"); ok {
		input.Tags = datatypes.JSON(portfolio.DecodeJSONField(v))
	}
	if v, ok := formValue(c, "content_data"); ok {
		input.ContentData = portfolio.ParseContentData([]byte(v))
		input.HasContentData = true
	}

	upload := func(file *multipart.FileHeader, validate func(string, int64) error, into func(string)) bool {
		if err := validate(uploadMediaType(file), file.Size); err != nil {
			DomainError(c, err, "internal error")
			return false
		}
		objectKey := objectKeyFor(userID, file.Filename)
		if err := h.uploader.store(ctx, file, objectKey); err != nil {
			h.cleanupUploads(ctx, logger, uploadedKeys)
			if errors.Is(err, errMaliciousUpload) {
				BadRequest(c, "Файл не прошел проверку безопасности")
				return false
			}
			logger.Error("item upload failed", slog.Any("error", err))
			Internal(c, "internal error")
			return false
		}
		uploadedKeys = append(uploadedKeys, objectKey)
		into(objectKey)
		return true
	}

	if file, err := c.FormFile("image"); err == nil && file != nil {
		if !upload(file, portfolio.ValidateImageUpload, func(key string) {
			input.ImageKey = &key
		}) {
			return input, uploadedKeys, false
		}
	}
	if file, err := c.FormFile("video_file"); err == nil && file != nil {
		if !upload(file, portfolio.ValidateVideoUpload, func(key string) {
			input.HasAttachment = true
			h.setContentDataKey(&input, "video_key", key)
		}) {
			return input, uploadedKeys, false
		}
	}
	if file, err := c.FormFile("pdf_file"); err == nil && file != nil {
		if !upload(file, portfolio.ValidatePDFUpload, func(key string) {
			input.HasAttachment = true
			h.setContentDataKey(&input, "pdf_key", key)
		}) {
			return input, uploadedKeys, false
		}
	}

	return input, uploadedKeys, true
}

// setContentDataKey records an uploaded attachment inside content_data so the
// stored record points at the object.
func (h *ItemHandler) setContentDataKey(input *portfolio.ItemInput, field, objectKey string) {
	if input.ContentData == nil {
		input.ContentData = portfolio.ContentData{}
	}
	input.ContentData[field] = objectKey
	input.HasContentData = true
}

func (h *ItemHandler) cleanupUploads(ctx context.Context, logger *slog.Logger, keys []string) {
	for _, key := range keys {
		if err := h.storage.DeleteObject(ctx, key); err != nil {
			logger.Warn("cleanup upload failed", slog.String("key", key), slog.Any("error", err))
		}
	}
}
