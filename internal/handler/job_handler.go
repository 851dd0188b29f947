// internal/handler/job_handler.go
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"print-bridge/internal/model"
	"print-bridge/internal/repository"
	"print-bridge/internal/utils"
)

// JobHandler exposes the print journal
type JobHandler struct {
	jobs   repository.PrintJobRepository
	logger *utils.ServiceLogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs repository.PrintJobRepository, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: utils.NewServiceLogger(logger, "job-handler"),
	}
}

// ListJobs lists recent print jobs
// @Summary List print jobs
// @Tags Jobs
// @Produce json
// @Param device_id query string false "Filter by printer"
// @Param status query string false "Filter by status" Enums(SUCCESS, FAILED)
// @Param since query string false "RFC 3339 lower bound"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {object} utils.APIResponse{data=object{jobs=[]model.PrintJob}}
// @Failure 400 {object} utils.APIResponse "Invalid query"
// @Router /jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	filter := model.PrintJobFilter{
		DeviceID: c.Query("device_id"),
		Status:   model.PrintJobStatus(c.Query("status")),
		Limit:    50,
	}

	if filter.Status != "" && filter.Status != model.PrintJobStatusSuccess && filter.Status != model.PrintJobStatusFailed {
		utils.ValidationErrorResponse(c, map[string]string{"status": "must be SUCCESS or FAILED"})
		return
	}

	if limit := c.Query("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil || l <= 0 || l > 500 {
			utils.ValidationErrorResponse(c, map[string]string{"limit": "must be between 1 and 500"})
			return
		}
		filter.Limit = l
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			utils.ValidationErrorResponse(c, map[string]string{"since": "must be an RFC 3339 timestamp"})
			return
		}
		filter.Since = &t
	}

	jobs, err := h.jobs.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list print jobs", zap.Error(err))
		respondError(c, "Failed to list print jobs", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Print jobs retrieved", gin.H{"jobs": jobs})
}

// GetJob returns one print job
// @Summary Get print job
// @Tags Jobs
// @Produce json
// @Param job_id path string true "Job ID"
// @Success 200 {object} utils.APIResponse{data=model.PrintJob}
// @Failure 400 {object} utils.APIResponse "Invalid job ID"
// @Failure 404 {object} utils.APIResponse "Job not found"
// @Router /jobs/{job_id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid job ID", err)
		return
	}

	job, err := h.jobs.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to get print job", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Print job retrieved", job)
}
