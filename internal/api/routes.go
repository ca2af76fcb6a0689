package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Import routes
		v1.POST("/imports/upload", handler.UploadFile)
		v1.POST("/imports/:file_id/run", handler.TriggerImport)
		v1.POST("/imports/:file_id/dry-run", handler.DryRunImport)
		v1.GET("/imports/runs/:run_id", handler.GetRunStatus)

		// Export routes
		v1.POST("/exports/trigger", handler.TriggerExport)
	}
}
