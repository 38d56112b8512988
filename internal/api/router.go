package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"craftfolio/internal/api/middleware"
	"craftfolio/internal/metrics"
)

// NewRouter builds the engine with the shared middleware chain and the
// operational endpoints. Business routes are attached by RegisterRoutes.
func NewRouter(logger *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.CorrelationIDMiddleware())
	router.Use(middleware.SlogLoggerMiddleware(logger))
	router.Use(metrics.GinMiddleware())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
