package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"craftfolio/internal/api/middleware"
	"craftfolio/internal/auth"
)

// RouteDeps bundles the shared infrastructure the handlers need.
type RouteDeps struct {
	DB          *gorm.DB
	AuthService *auth.AuthService
	Redis       redis.UniversalClient
	Storage     blobStorage
	Logger      *slog.Logger
	ClamdAddr   string

	LoginRateLimitPerHour int
	LoginLockThreshold    int
	LoginLockTTL          time.Duration
	CookieDomain          string
}

// RegisterRoutes wires the full HTTP surface onto router.
func RegisterRoutes(router *gin.Engine, deps RouteDeps) {
	authHandler := NewAuthHandler(deps.DB, deps.AuthService, deps.Redis, deps.Logger, deps.Storage,
		deps.LoginRateLimitPerHour, deps.LoginLockThreshold, deps.LoginLockTTL, deps.CookieDomain)
	profileHandler := NewProfileHandler(deps.DB, deps.Storage, deps.ClamdAddr)
	portfolioHandler := NewPortfolioHandler(deps.DB, deps.Storage, deps.ClamdAddr)
	itemHandler := NewItemHandler(deps.DB, deps.Storage, deps.ClamdAddr)
	templateHandler := NewTemplateHandler(deps.DB, deps.Storage, deps.ClamdAddr)
	adminHandler := NewAdminHandler(deps.DB, deps.Storage)

	v1 := router.Group("/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(deps.AuthService))
	{
		authed.GET("/profile", profileHandler.Get)
		authed.PUT("/profile", profileHandler.Update)

		authed.GET("/portfolio/my", portfolioHandler.GetMy)
		authed.POST("/portfolio/my", portfolioHandler.UpdateMy)

		// Read-only viewer: any portfolio by id, no ownership check.
		authed.GET("/portfolios/:id", portfolioHandler.View)

		authed.GET("/templates", templateHandler.List)
		authed.GET("/templates/:id", templateHandler.Get)

		authed.GET("/items", itemHandler.List)
		authed.POST("/items", itemHandler.Create)
		authed.PUT("/items/:id", itemHandler.Update)
		authed.DELETE("/items/:id", itemHandler.Delete)
		authed.POST("/items/reorder", itemHandler.Reorder)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(deps.AuthService), middleware.AdminMiddleware(deps.DB))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users/:id/block", adminHandler.BlockUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)

		admin.POST("/templates", templateHandler.AdminCreate)
		admin.PUT("/templates/:id", templateHandler.AdminUpdate)
		admin.DELETE("/templates/:id", templateHandler.AdminDeactivate)
	}
}
