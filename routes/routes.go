package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"docintel-platform/internal/config"
	"docintel-platform/middleware"
)

// SetupRouter builds the HTTP surface: documents, comparison, QA and
// health.
func SetupRouter(
	cfg *config.Config,
	redisClient *redis.Client,
	documents *DocumentHandler,
	compare *CompareHandler,
	qa *QAHandler,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api")
	if redisClient != nil {
		api.Use(middleware.RateLimit(redisClient, cfg.RateLimitReqs, cfg.RateLimitWindow))
	}

	api.POST("/documents", documents.CreateDocument)
	api.GET("/documents", documents.ListDocuments)
	api.GET("/documents/:id", documents.GetDocument)
	api.DELETE("/documents/:id", documents.DeleteDocument)

	api.POST("/compare", compare.Compare)
	api.GET("/compare/history", compare.History)
	api.GET("/compare/stats", compare.Stats)
	api.GET("/compare/export/json", compare.ExportJSON)
	api.GET("/compare/export/xlsx", compare.ExportXLSX)

	api.POST("/ask", qa.Ask)

	return router
}
