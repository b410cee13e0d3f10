package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"slightbackup/backup"
	"slightbackup/config"
	"slightbackup/notify"
	"slightbackup/task"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type Handler struct {
	coordinator *task.Coordinator
	tracker     *Tracker
	store       *backup.Store
	cfg         *config.Config
}

func NewHandler(coord *task.Coordinator, tracker *Tracker, store *backup.Store, cfg *config.Config) *Handler {
	return &Handler{
		coordinator: coord,
		tracker:     tracker,
		store:       store,
		cfg:         cfg,
	}
}

type ExportRequest struct {
	Type string `json:"type" form:"type" binding:"required"`
}

type Variant struct {
	Type  task.Selector `json:"type"`
	Label string        `json:"label"`
}

type BackupFile struct {
	backup.File
	DownloadURL string `json:"downloadUrl"`
}

// handleCreateExport starts an export in the background.
func (h *Handler) handleCreateExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sel, err := task.ParseSelector(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.tracker.Acquire() {
		c.JSON(http.StatusConflict, gin.H{"error": "Another export is already running"})
		return
	}

	t, err := h.coordinator.Start(sel)
	if err != nil {
		h.tracker.Release()
		status := http.StatusInternalServerError
		if errors.Is(err, task.ErrUnknownVariant) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": "Failed to start export", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"taskId": t.ID})
}

func (h *Handler) handleListExports(c *gin.Context) {
	records := h.tracker.List()
	for i := range records {
		h.withDownloadURL(c, &records[i])
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) handleGetExport(c *gin.Context) {
	rec, found := h.tracker.Get(c.Param("taskId"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	h.withDownloadURL(c, &rec)
	c.JSON(http.StatusOK, rec)
}

// handleCancelExport requests cooperative cancellation. Cancelling a
// finished task is a no-op.
func (h *Handler) handleCancelExport(c *gin.Context) {
	taskID := c.Param("taskId")
	if _, found := h.tracker.Get(taskID); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	t, live := h.coordinator.Get(taskID)
	if !live || t.State().Terminal() {
		c.JSON(http.StatusOK, gin.H{"message": "Task already finished"})
		return
	}
	h.coordinator.CancelTask(t)
	c.JSON(http.StatusOK, gin.H{"message": "Task cancellation requested"})
}

func (h *Handler) handleListVariants(c *gin.Context) {
	sels := h.coordinator.Selectors()
	variants := make([]Variant, 0, len(sels))
	for _, sel := range sels {
		variants = append(variants, Variant{Type: sel, Label: notify.Label(sel)})
	}
	c.JSON(http.StatusOK, variants)
}

func (h *Handler) handleListBackups(c *gin.Context) {
	files := h.store.List()
	out := make([]BackupFile, 0, len(files))
	for _, f := range files {
		out = append(out, BackupFile{File: f, DownloadURL: h.downloadURL(c, f.Name)})
	}
	c.JSON(http.StatusOK, out)
}

// handleGetFile serves a backup file.
func (h *Handler) handleGetFile(c *gin.Context) {
	filePath, err := h.store.GetFilePath(c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.File(filePath)
}

func (h *Handler) withDownloadURL(c *gin.Context, rec *Record) {
	if rec.Outcome == nil || rec.Outcome.Count == 0 || rec.Outcome.Path == "" {
		return
	}
	rec.DownloadURL = h.downloadURL(c, filepath.Base(rec.Outcome.Path))
}

// downloadURL constructs the full URL for a backup file.
func (h *Handler) downloadURL(c *gin.Context, filename string) string {
	baseURL := h.cfg.BaseURL
	if baseURL == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/api/v1/files/%s", baseURL, filename)
}
