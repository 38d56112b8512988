package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"craftfolio/internal/portfolio"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// DomainError translates the core error taxonomy at the request boundary:
// validation failures become field-level 400s, not-found (including masked
// ownership violations) a 404, anything else a 500 with fallback as the
// client-safe message.
func DomainError(c *gin.Context, err error, fallback string) {
	var ve *portfolio.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, portfolio.ErrNotFound):
		NotFound(c, "not found")
	default:
		Internal(c, fallback)
	}
}
