package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"eclreports/internal/config"
	"eclreports/internal/controllers"
	"eclreports/internal/store"
)

// SetupRouter initializes all services, controllers, and API routes
func SetupRouter(db *gorm.DB, cfg *config.Config, queue controllers.Enqueuer) *gin.Engine {
	reportController := controllers.NewReportController(store.New(db), queue)

	// Set up Gin router
	router := gin.Default()

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Group API routes under /api/v1
	api := router.Group("/api/v1")
	{
		api.GET("/documents", reportController.GetDocuments)
		api.GET("/tables/:id", reportController.GetTable)
		api.GET("/reconciliations", reportController.GetReconciliations)

		// POST /api/v1/reports/:report/compile
		// Queues CSV and workbook compilation of one report
		api.POST("/reports/:report/compile", reportController.CompileReport)
	}

	return router
}
