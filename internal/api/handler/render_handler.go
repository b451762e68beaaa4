package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/api/dto"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/engine"
)

const defaultWaitTimeout = 30 * time.Second

// SubmitJob handles POST /api/v1/render/jobs
// Enqueues a render job and returns its ID without waiting for execution.
func (h *RenderHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	jobID, err := h.engine.SubmitJob(req.SceneConfig, req.Priority, req.EstimatedDuration)
	if err != nil {
		if errors.Is(err, engine.ErrEmptySceneConfig) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		h.logger.Error("Failed to submit job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to submit job",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.SubmitJobResponse{
		JobID:  jobID,
		Status: string(engine.StatusQueued),
	})
}

// GetJob handles GET /api/v1/render/jobs/:job_id
func (h *RenderHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	snap, err := h.engine.GetJobStatus(jobID)
	if err != nil {
		if errors.Is(err, engine.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, toJobResponse(snap))
}

// ListJobs handles GET /api/v1/render/jobs
// Lists tracked jobs, newest first, with optional ?status= filtering.
func (h *RenderHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	snaps := h.engine.ListJobs(engine.Status(req.Status))

	jobs := make([]dto.JobResponse, len(snaps))
	for i, snap := range snaps {
		jobs[i] = toJobResponse(snap)
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: jobs})
}

// WaitJob handles GET /api/v1/render/jobs/:job_id/wait?timeout=30s
// Blocks until the job reaches a terminal status or the timeout elapses.
// A timeout never cancels the job; it bounds only this request.
func (h *RenderHandler) WaitJob(c *gin.Context) {
	jobID := c.Param("job_id")

	timeout := defaultWaitTimeout
	if raw := c.Query("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "timeout must be a positive duration, e.g. 30s",
			})
			return
		}
		timeout = parsed
	}

	resultPath, err := h.engine.WaitForJob(c.Request.Context(), jobID, timeout)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
		case errors.Is(err, engine.ErrWaitTimeout):
			c.JSON(http.StatusRequestTimeout, dto.WaitJobResponse{
				JobID: jobID,
				Error: err.Error(),
			})
		case errors.Is(err, engine.ErrJobCanceled):
			c.JSON(http.StatusOK, dto.WaitJobResponse{
				JobID:  jobID,
				Status: string(engine.StatusCanceled),
				Error:  err.Error(),
			})
		case errors.Is(err, engine.ErrJobFailed):
			c.JSON(http.StatusOK, dto.WaitJobResponse{
				JobID:  jobID,
				Status: string(engine.StatusFailed),
				Error:  err.Error(),
			})
		default:
			h.logger.Error("Failed to wait for job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to wait for job",
			})
		}
		return
	}

	c.JSON(http.StatusOK, dto.WaitJobResponse{
		JobID:      jobID,
		Status:     string(engine.StatusCompleted),
		ResultPath: resultPath,
	})
}

// CancelJob handles POST /api/v1/render/jobs/:job_id/cancel
func (h *RenderHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")

	err := h.engine.CancelJob(jobID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
		case errors.Is(err, engine.ErrJobFinished):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Job already finished",
			})
		default:
			h.logger.Error("Failed to cancel job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to cancel job",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"status": string(engine.StatusCanceled),
	})
}

// QueueStatus handles GET /api/v1/render/queue
func (h *RenderHandler) QueueStatus(c *gin.Context) {
	stats := h.engine.QueueStatus()
	c.JSON(http.StatusOK, dto.QueueStatusResponse{
		Pending:           stats.Pending,
		Active:            stats.Active,
		Completed:         stats.Completed,
		MaxConcurrentJobs: stats.MaxConcurrentJobs,
	})
}

// Cleanup handles POST /api/v1/render/cleanup
// Purges terminal jobs older than the given max_age duration.
func (h *RenderHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	maxAge, err := time.ParseDuration(req.MaxAge)
	if err != nil || maxAge < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "max_age must be a non-negative duration, e.g. 24h",
		})
		return
	}

	removed := h.engine.CleanupOldJobs(maxAge)
	c.JSON(http.StatusOK, dto.CleanupResponse{Removed: removed})
}

// RenderSync handles POST /api/v1/render/sync
// Renders the scene immediately, bypassing the queue and concurrency bound.
func (h *RenderHandler) RenderSync(c *gin.Context) {
	var req dto.RenderSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	outputPath, err := h.engine.RenderSync(c.Request.Context(), req.SceneConfig)
	if err != nil {
		if errors.Is(err, engine.ErrEmptySceneConfig) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		h.logger.Error("Synchronous render failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Render failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.RenderSyncResponse{OutputPath: outputPath})
}

func toJobResponse(snap engine.Snapshot) dto.JobResponse {
	return dto.JobResponse{
		JobID:             snap.JobID,
		SceneConfig:       snap.SceneConfig,
		Priority:          snap.Priority,
		EstimatedDuration: snap.EstimatedDuration,
		Status:            string(snap.Status),
		ResultPath:        snap.ResultPath,
		ErrorMessage:      snap.ErrorMessage,
		CreatedAt:         snap.CreatedAt.Format(time.RFC3339),
	}
}
