package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"craftfolio/internal/auth"
	"craftfolio/internal/database"
)

const adminUserKey = "adminUser"

// AdminMiddleware loads the authenticated account and applies the single
// RequireAdmin capability check. Must run after AuthMiddleware. The flag is
// re-read from storage on each request so a revoked or blocked admin loses
// access immediately.
func AdminMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("userID")
		userID, ok := value.(uint)
		if !exists || !ok {
			abortUnauthorized(c)
			return
		}

		var user database.User
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			abortUnauthorized(c)
			return
		}

		if err := auth.RequireAdmin(&user); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Доступ запрещен"})
			return
		}

		c.Set(adminUserKey, &user)
		c.Next()
	}
}

// AdminFromContext returns the admin account loaded by AdminMiddleware.
func AdminFromContext(c *gin.Context) (*database.User, bool) {
	value, exists := c.Get(adminUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*database.User)
	return user, ok
}
