package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"craftfolio/internal/api/middleware"
	"craftfolio/internal/database"
)

// AdminHandler serves the moderation endpoints. Every route is mounted behind
// AdminMiddleware, which already verified the caller.
type AdminHandler struct {
	db      *gorm.DB
	storage blobStorage
}

func NewAdminHandler(db *gorm.DB, storageClient blobStorage) *AdminHandler {
	return &AdminHandler{db: db, storage: storageClient}
}

type statsResponse struct {
	TotalUsers      int64 `json:"total_users"`
	ActiveUsers     int64 `json:"active_users"`
	TotalPortfolios int64 `json:"total_portfolios"`
	TotalItems      int64 `json:"total_items"`
	TotalTemplates  int64 `json:"total_templates"`
}

// Stats returns platform-wide counters.
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	logger := requestLogger(c)

	var stats statsResponse
	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, h.db.WithContext(ctx).Model(&database.User{})},
		{&stats.ActiveUsers, h.db.WithContext(ctx).Model(&database.User{}).Where("is_active = ?", true)},
		{&stats.TotalPortfolios, h.db.WithContext(ctx).Model(&database.Portfolio{})},
		{&stats.TotalItems, h.db.WithContext(ctx).Model(&database.PortfolioItem{})},
		{&stats.TotalTemplates, h.db.WithContext(ctx).Model(&database.Template{})},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dest).Error; err != nil {
			logger.Error("admin stats count failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}

type adminUserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ListUsers returns all accounts, newest first.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	var users []database.User
	if err := h.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		requestLogger(c).Error("admin list users failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	resp := make([]adminUserResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, adminUserResponse{
			ID:        user.ID,
			Email:     user.Email,
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			IsAdmin:   user.IsAdmin,
			IsActive:  user.IsActive,
			CreatedAt: user.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// BlockUser deactivates an account. The user keeps their data but can no
// longer log in or refresh tokens.
func (h *AdminHandler) BlockUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, "Пользователь не найден")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c)

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Пользователь не найден")
			return
		}
		logger.Error("admin load user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Model(&user).Update("is_active", false).Error; err != nil {
		logger.Error("admin block user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user blocked", slog.Uint64("target_user_id", uint64(user.ID)))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Пользователь заблокирован"})
}

// DeleteUser removes an account with its portfolio, items and stored media.
// Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, "Пользователь не найден")
		return
	}

	admin, ok := middleware.AdminFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if admin.ID == uint(id) {
		BadRequest(c, "Нельзя удалить самого себя")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c)

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Пользователь не найден")
			return
		}
		logger.Error("admin load user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p database.Portfolio
		err := tx.Where("user_id = ?", user.ID).First(&p).Error
		if err == nil {
			if err := tx.Unscoped().
				Where("portfolio_id = ?", p.ID).
				Delete(&database.PortfolioItem{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Delete(&p).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Unscoped().Delete(&user).Error
	})
	if err != nil {
		logger.Error("admin delete user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// Blob cleanup is best effort: the rows are gone either way.
	if err := h.storage.DeletePrefix(ctx, userPrefix(user.ID)); err != nil {
		logger.Warn("delete user media failed", slog.Any("error", err))
	}

	logger.Info("user deleted", slog.Uint64("target_user_id", uint64(user.ID)))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
