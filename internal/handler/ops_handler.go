package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/practicum-api/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// OpsHandler exposes liveness, readiness and metrics endpoints.
type OpsHandler struct {
	metrics *service.MetricsService
	db      Pinger
	timeout time.Duration
}

// NewOpsHandler constructs an ops handler. db may be nil.
func NewOpsHandler(metrics *service.MetricsService, db Pinger) *OpsHandler {
	return &OpsHandler{metrics: metrics, db: db, timeout: 2 * time.Second}
}

// Prometheus serves the Prometheus metrics endpoint.
// @Summary Prometheus metrics
// @Tags Ops
// @Produce plain
// @Success 200 {string} string
// @Router /metrics [get]
func (h *OpsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
// @Summary Health check
// @Tags Ops
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *OpsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready checks the database before reporting ready.
// @Summary Readiness check
// @Tags Ops
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *OpsHandler) Ready(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
