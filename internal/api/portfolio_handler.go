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

// PortfolioHandler serves the owner's portfolio editor and the public viewer.
type PortfolioHandler struct {
	db         *gorm.DB
	portfolios *portfolio.PortfolioStore
	items      *portfolio.ItemStore
	uploader   *uploader
	storage    blobStorage
}

func NewPortfolioHandler(db *gorm.DB, storageClient blobStorage, clamdAddr string) *PortfolioHandler {
	return &PortfolioHandler{
		db:         db,
		portfolios: portfolio.NewPortfolioStore(db),
		items:      portfolio.NewItemStore(db),
		uploader:   &uploader{storage: storageClient, clamdAddr: clamdAddr},
		storage:    storageClient,
	}
}

type portfolioResponse struct {
	ID          uint   `json:"id"`
	UserID      uint   `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	TemplateID   *uint  `json:"template_id"`
	TemplateName string `json:"template_name,omitempty"`

	AvatarURL string `json:"avatar_url,omitempty"`

	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Website  string `json:"website"`
	Location string `json:"location"`

	ColorScheme    datatypes.JSON `json:"color_scheme"`
	SocialLinks    datatypes.JSON `json:"social_links"`
	Skills         datatypes.JSON `json:"skills"`
	Experience     datatypes.JSON `json:"experience"`
	Education      datatypes.JSON `json:"education"`
	Certificates   datatypes.JSON `json:"certificates"`
	Languages      datatypes.JSON `json:"languages"`
	DesignSettings datatypes.JSON `json:"design_settings"`

	Items []itemResponse `json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *PortfolioHandler) newPortfolioResponse(c *gin.Context, p *database.Portfolio, items []database.PortfolioItem, templateName string) portfolioResponse {
	ctx := c.Request.Context()
	resp := portfolioResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		Name:           p.Name,
		Description:    p.Description,
		TemplateID:     p.TemplateID,
		TemplateName:   templateName,
		AvatarURL:      presignedOrEmpty(ctx, h.storage, p.AvatarKey),
		Phone:          p.Phone,
		Email:          p.Email,
		Website:        p.Website,
		Location:       p.Location,
		ColorScheme:    p.ColorScheme,
		SocialLinks:    p.SocialLinks,
		Skills:         p.Skills,
		Experience:     p.Experience,
		Education:      p.Education,
		Certificates:   p.Certificates,
		Languages:      p.Languages,
		DesignSettings: p.DesignSettings,
	}
	resp.Items = make([]itemResponse, 0, len(items))
	for i := range items {
		resp.Items = append(resp.Items, h.itemResponse(c, &items[i]))
	}
	resp.CreatedAt = p.CreatedAt
	resp.UpdatedAt = p.UpdatedAt
	return resp
}

func (h *PortfolioHandler) itemResponse(c *gin.Context, item *database.PortfolioItem) itemResponse {
	return newItemResponse(c.Request.Context(), h.storage, item)
}

// GetMy returns the caller's portfolio, creating an empty one on first access.
func (h *PortfolioHandler) GetMy(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c).With(slog.Uint64("user_id", uint64(userID)))

	p, err := h.portfolios.GetOrCreate(ctx, userID)
	if err != nil {
		logger.Error("get or create portfolio failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	items, err := h.items.ListForPortfolio(ctx, p.ID)
	if err != nil {
		logger.Error("list portfolio items failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, h.newPortfolioResponse(c, p, items, h.templateName(c, p.TemplateID)))
}

// jsonFormFields maps multipart field names to PortfolioUpdate JSON slots.
var jsonFormFields = []string{
	"color_scheme", "social_links", "skills", "experience",
	"education", "certificates", "languages", "design_settings",
}

// UpdateMy applies a partial multipart update to the caller's portfolio.
// JSON-typed form fields accept either a JSON document or a bare string; a
// bare string is stored as a JSON string rather than rejected.
func (h *PortfolioHandler) UpdateMy(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c).With(slog.Uint64("user_id", uint64(userID)))

	var update portfolio.PortfolioUpdate

	if v, ok := formValue(c, "name"); ok {
		name := strings.TrimSpace(v)
		if name == "" {
			name = portfolio.DefaultName
		}
		update.Name = &name
	}
	if v, ok := formValue(c, "description"); ok {
		update.Description = &v
	}
	if v, ok := formValue(c, "phone"); ok {
		update.Phone = &v
	}
	if v, ok := formValue(c, "email"); ok {
		update.Email = &v
	}
	if v, ok := formValue(c, "website"); ok {
		update.Website = &v
	}
	if v, ok := formValue(c, "location"); ok {
		update.Location = &v
	}

	if v, ok := formValue(c, "template"); ok {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			update.ClearTemplate = true
		} else {
			id, err := strconv.ParseUint(trimmed, 10, 64)
			if err != nil {
				BadRequest(c, "Шаблон не найден")
				return
			}
			templateID := uint(id)
			update.TemplateID = &templateID
		}
	}

	for _, field := range jsonFormFields {
		v, ok := formValue(c, field)
		if !ok {
			continue
		}
		decoded := datatypes.JSON(portfolio.DecodeJSONField(v))
		switch field {
		case "color_scheme":
			update.ColorScheme = decoded
		case "social_links":
			update.SocialLinks = decoded
		case "skills":
			update.Skills = decoded
		case "experience":
			update.Experience = decoded
		case "education":
			update.Education = decoded
		case "certificates":
			update.Certificates = decoded
		case "languages":
			update.Languages = decoded
		case "design_settings":
			update.DesignSettings = decoded
		}
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
			logger.Error("portfolio avatar upload failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		if current, err := h.portfolios.GetOrCreate(ctx, userID); err == nil {
			oldAvatarKey = current.AvatarKey
		}
		update.AvatarKey = &objectKey
	}

	p, err := h.portfolios.Update(ctx, userID, update)
	if err != nil {
		if !portfolio.IsValidation(err) {
			logger.Error("update portfolio failed", slog.Any("error", err))
		}
		DomainError(c, err, "internal error")
		return
	}

	if oldAvatarKey != "" && oldAvatarKey != p.AvatarKey {
		if err := h.storage.DeleteObject(ctx, oldAvatarKey); err != nil {
			logger.Warn("delete old portfolio avatar failed", slog.Any("error", err))
		}
	}

	items, err := h.items.ListForPortfolio(ctx, p.ID)
	if err != nil {
		logger.Error("list portfolio items failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, h.newPortfolioResponse(c, p, items, h.templateName(c, p.TemplateID)))
}

// View serves any portfolio read-only by id. Any authenticated account may
// look, so there is no ownership check and no masking here.
func (h *PortfolioHandler) View(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, "not found")
		return
	}

	ctx := c.Request.Context()
	p, err := h.portfolios.Get(ctx, uint(id))
	if err != nil {
		DomainError(c, err, "internal error")
		return
	}

	items, err := h.items.ListForPortfolio(ctx, p.ID)
	if err != nil {
		requestLogger(c).Error("list portfolio items failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, h.newPortfolioResponse(c, p, items, h.templateName(c, p.TemplateID)))
}

func (h *PortfolioHandler) templateName(c *gin.Context, templateID *uint) string {
	if templateID == nil {
		return ""
	}
	var tpl database.Template
	if err := h.db.WithContext(c.Request.Context()).First(&tpl, *templateID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			requestLogger(c).Warn("load template name failed", slog.Any("error", err))
		}
		return ""
	}
	return tpl.Name
}
