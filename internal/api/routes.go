package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/audionhq/timbre/internal/models"
	"github.com/audionhq/timbre/internal/registry"
	"github.com/audionhq/timbre/internal/trainer"
)

// TrainRequest is the acceptance body posted by the backend.
type TrainRequest struct {
	VoiceFileID      string  `json:"voiceFileId"`
	VoiceFileURL     string  `json:"voiceFileUrl"`
	UserID           string  `json:"userId"`
	WalletAddress    string  `json:"walletAddress"`
	OriginalFilename string  `json:"originalFilename"`
	Duration         float64 `json:"duration"`
}

// TrainResponse is returned as soon as the job is registered.
type TrainResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// registerRoutes sets up all API routes behind the auth middleware.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	authed := router.Group("/", requireAuth(opts.AuthSecret))

	authed.POST("/train", handleTrain(opts.Trainer))
	authed.GET("/train/status/:id", handleStatus(opts.Registry))
	authed.GET("/train/jobs", handleListJobs(opts.Registry))
	authed.DELETE("/train/jobs/:id", handleDeleteJob(opts.Registry))
}

func handleTrain(t *trainer.Trainer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TrainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
			return
		}
		if req.VoiceFileURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "voiceFileUrl is required"})
			return
		}
		if req.VoiceFileID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "voiceFileId is required"})
			return
		}

		job, err := t.Accept(trainer.Request{
			VoiceFileID:      req.VoiceFileID,
			VoiceFileURL:     req.VoiceFileURL,
			UserID:           req.UserID,
			WalletAddress:    req.WalletAddress,
			OriginalFilename: req.OriginalFilename,
			Duration:         req.Duration,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}

		c.JSON(http.StatusOK, TrainResponse{JobID: job.ID, Status: job.Status})
	}
}

func handleStatus(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		job, err := reg.Get(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "job " + id + " not found"})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func handleListJobs(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs := reg.List()
		summaries := make([]models.JobSummary, 0, len(jobs))
		for i := range jobs {
			summaries = append(summaries, jobs[i].Summary())
		}
		c.JSON(http.StatusOK, gin.H{
			"totalJobs": len(summaries),
			"jobs":      summaries,
		})
	}
}

func handleDeleteJob(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		err := reg.Delete(id)
		switch {
		case errors.Is(err, registry.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": "job " + id + " not found"})
		case errors.Is(err, registry.ErrInFlight):
			c.JSON(http.StatusConflict, gin.H{"detail": "cannot delete running job"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		default:
			c.JSON(http.StatusOK, gin.H{"message": "job " + id + " deleted successfully"})
		}
	}
}
