package http

import (
	"github.com/gin-gonic/gin"

	"github.com/tryonlog/catalog/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("/lookup", handler.LookupProduct)
			products.GET("/:brand/:identity", handler.GetProduct)
		}

		v1.GET("/sizes/:category", handler.ListSizes)
		v1.GET("/review/items", handler.ListReviewItems)
		v1.GET("/log/:brand", handler.ListConsolidationLog)

		v1.POST("/ingest/:brand", handler.IngestBatch)
		v1.POST("/reconcile/:brand", handler.Reconcile)
	}

	return router
}
