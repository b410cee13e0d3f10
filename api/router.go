package api

import (
	"slightbackup/backup"
	"slightbackup/config"
	"slightbackup/task"

	"github.com/gin-gonic/gin"
)

func SetupRouter(coord *task.Coordinator, tracker *Tracker, store *backup.Store, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	h := NewHandler(coord, tracker, store, cfg)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "busy": tracker.Busy()})
	})

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(cfg))
	{
		v1.GET("/variants", h.handleListVariants)

		v1.POST("/exports", RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst), h.handleCreateExport)
		v1.GET("/exports", h.handleListExports)
		v1.GET("/exports/:taskId", h.handleGetExport)
		v1.PATCH("/exports/:taskId/cancel", h.handleCancelExport)

		v1.GET("/backups", h.handleListBackups)
		v1.GET("/files/:filename", h.handleGetFile)
	}
	return r
}
