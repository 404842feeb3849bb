package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Kamar-Folarin/site-sync/internal/observability"
)

// @title Site Sync API
// @version 1.0
// @description Control API for the WordPress/WooCommerce cache sync and content batch processor
// @contact.name API Support
// @contact.url http://github.com/Kamar-Folarin
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// SetupRouter configures the API routes
func SetupRouter(h *Handler, logger logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), corsMiddleware())

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := r.Group("/api/v1")
	RegisterRoutes(v1, h)

	return r
}

// RegisterRoutes registers the v1 endpoints on a router group
func RegisterRoutes(v1 *gin.RouterGroup, h *Handler) {
	sites := v1.Group("/sites")
	{
		sites.GET("", h.ListSites)
		sites.PUT("/:id/active", h.SetActiveSite)
		sites.POST("/:id/sync", h.SyncSite)
		sites.GET("/:id/sync-status", h.GetSyncStatus)
		sites.GET("/:id/sync-logs", h.GetSyncLogs)
		sites.GET("/:id/cache/:type", h.ListCache)
		sites.GET("/:id/cache/:type/:entityId", h.GetCacheRecord)
	}

	v1.DELETE("/sync", h.CancelSync)
	v1.GET("/cache/size", h.GetCacheSize)

	b := v1.Group("/batch")
	{
		b.POST("/start", h.StartBatch)
		b.POST("/pause", h.PauseBatch)
		b.POST("/resume", h.ResumeBatch)
		b.POST("/cancel", h.CancelBatch)
		b.GET("/progress", h.GetBatchProgress)
		b.GET("/session", h.GetBatchSession)
		b.DELETE("/session", h.ResetBatchSession)
		b.GET("/events", h.StreamBatchEvents)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	}
}
