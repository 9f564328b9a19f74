package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/practicum-api/internal/models"
	"github.com/noah-isme/practicum-api/pkg/response"
)

type runSummaryReader interface {
	LatestRun(ctx context.Context, practiceID string) (*models.AssignmentRun, error)
}

type runTrigger interface {
	Trigger(practiceID string) (string, error)
}

// AssignmentHandler exposes assignment run summaries and manual triggers.
type AssignmentHandler struct {
	runs    runSummaryReader
	trigger runTrigger
}

// NewAssignmentHandler constructs the handler. trigger may be nil, in which
// case manual runs are rejected.
func NewAssignmentHandler(runs runSummaryReader, trigger runTrigger) *AssignmentHandler {
	return &AssignmentHandler{runs: runs, trigger: trigger}
}

// Latest returns the most recent run summary of a practice.
// @Summary Latest assignment run of a practice
// @Tags Assignment Runs
// @Produce json
// @Param practiceID path string true "Practice ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /api/v1/runs/{practiceID}/latest [get]
func (h *AssignmentHandler) Latest(c *gin.Context) {
	run, err := h.runs.LatestRun(c.Request.Context(), c.Param("practiceID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// Trigger queues a run of the practice and answers 202 with the job id.
// @Summary Queue an assignment run
// @Tags Assignment Runs
// @Produce json
// @Param practiceID path string true "Practice ID"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /api/v1/runs/{practiceID} [post]
func (h *AssignmentHandler) Trigger(c *gin.Context) {
	if h.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "scheduler disabled"})
		return
	}
	practiceID := c.Param("practiceID")
	jobID, err := h.trigger.Trigger(practiceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID, "practice_id": practiceID})
}
