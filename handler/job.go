package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/AnTengye/brdlayout/model"
	"github.com/AnTengye/brdlayout/pkg/logger"
	"github.com/AnTengye/brdlayout/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JobRunner processes an uploaded document for a job that is already saved.
type JobRunner interface {
	Run(ctx context.Context, job *model.Job, content io.Reader) error
}

// MockupObjects reads back and removes stored mockup images.
type MockupObjects interface {
	OpenObject(ctx context.Context, objectName string) (io.ReadCloser, int64, error)
	RemovePrefix(ctx context.Context, prefix string) error
}

type JobHandler struct {
	store   *service.JobStore
	runner  JobRunner
	mockups MockupObjects
	baseCtx context.Context // outlives requests, cancelled on shutdown
}

func NewJobHandler(baseCtx context.Context, store *service.JobStore, runner JobRunner, mockups MockupObjects) *JobHandler {
	return &JobHandler{
		store:   store,
		runner:  runner,
		mockups: mockups,
		baseCtx: baseCtx,
	}
}

// Upload accepts a PDF, DOCX or TXT document and starts its pipeline run.
func (h *JobHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	format := model.DetectFormat(header.Filename)
	if format == model.FormatUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF, DOCX and TXT files are allowed"})
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	now := time.Now()
	job := &model.Job{
		ID:        uuid.New().String(),
		Filename:  header.Filename,
		Format:    format,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.store.Save(job)

	logger.Info(c.Request.Context(), "job accepted",
		"job_id", job.ID, "filename", job.Filename, "bytes", len(content))

	// The store owns job from here on; the run only needs its immutable fields.
	run := &model.Job{ID: job.ID, Filename: job.Filename, Format: job.Format}

	// The run outlives the request but keeps its request ID for log correlation.
	runCtx := h.baseCtx
	if requestID, ok := c.Request.Context().Value(logger.RequestIDKey).(string); ok && requestID != "" {
		runCtx = context.WithValue(runCtx, logger.RequestIDKey, requestID)
	}
	go func() {
		if err := h.runner.Run(runCtx, run, bytes.NewReader(content)); err != nil {
			logger.Warn(logger.WithJob(runCtx, run.ID), "pipeline run failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"id":       run.ID,
		"filename": run.Filename,
		"format":   run.Format,
		"status":   model.StatusPending,
	})
}

// List returns all jobs without their layouts, newest first.
func (h *JobHandler) List(c *gin.Context) {
	jobs := h.store.List()

	result := make([]gin.H, len(jobs))
	for i, job := range jobs {
		result[i] = gin.H{
			"id":           job.ID,
			"filename":     job.Filename,
			"format":       job.Format,
			"status":       job.Status,
			"layout_count": len(job.Layouts),
			"created_at":   job.CreatedAt.Format(time.RFC3339),
			"updated_at":   job.UpdatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"jobs": result})
}

// Get returns a single job with its layouts
func (h *JobHandler) Get(c *gin.Context) {
	job := h.store.Get(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) GetStatus(c *gin.Context) {
	job := h.store.Get(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           job.ID,
		"status":       job.Status,
		"error_msg":    job.ErrorMsg,
		"layout_count": len(job.Layouts),
	})
}

// DownloadImage streams the stored mockup of layout n as an attachment.
func (h *JobHandler) DownloadImage(c *gin.Context) {
	job := h.store.Get(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 || n > len(job.Layouts) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Layout not found"})
		return
	}

	layout := job.Layouts[n-1]
	if !layout.HasImage() {
		c.JSON(http.StatusNotFound, gin.H{"error": "No image available for this layout"})
		return
	}

	reader, size, err := h.mockups.OpenObject(c.Request.Context(), layout.ImageObject)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to open mockup", "job_id", job.ID, "object", layout.ImageObject, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read stored image"})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, size, "image/png", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", layout.FileName),
	})
}

// Delete drops the job and, best effort, its stored mockups.
func (h *JobHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if h.store.Get(id) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	h.store.Delete(id)

	if err := h.mockups.RemovePrefix(c.Request.Context(), service.MockupPrefix(id)); err != nil {
		logger.Warn(c.Request.Context(), "failed to remove mockups", "job_id", id, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Job deleted"})
}
