package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/noah-isme/practicum-api/api/swagger"
	"github.com/noah-isme/practicum-api/internal/models"
	"github.com/noah-isme/practicum-api/internal/service"
	appErrors "github.com/noah-isme/practicum-api/pkg/errors"
)

type runSummaryStub struct {
	runs map[string]*models.AssignmentRun
}

func (s runSummaryStub) LatestRun(ctx context.Context, practiceID string) (*models.AssignmentRun, error) {
	if run, ok := s.runs[practiceID]; ok {
		return run, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no assignment run recorded")
}

type triggerStub struct {
	busy map[string]bool
}

func (s triggerStub) Trigger(practiceID string) (string, error) {
	if s.busy[practiceID] {
		return "", appErrors.Clone(appErrors.ErrRunInProgress, "")
	}
	return "job-" + practiceID, nil
}

type pingStub struct{ err error }

func (p pingStub) PingContext(ctx context.Context) error { return p.err }

func newTestRouter(db Pinger) (*gin.Engine, *service.MetricsService) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	runs := runSummaryStub{runs: map[string]*models.AssignmentRun{
		"practice-1": {
			ID:          "run-1",
			PracticeID:  "practice-1",
			Seed:        7,
			Assignments: []models.Assignment{{RegisteredStudentID: "s1", ProjectID: "proj-a", Phase: models.PhaseConfirmed, Priority: 1}},
			Unassigned:  []string{"s2"},
		},
	}}
	router := NewRouter(RouterDeps{
		APIPrefix:   "/api/v1",
		Metrics:     metrics,
		Ops:         NewOpsHandler(metrics, db),
		Assignments: NewAssignmentHandler(runs, triggerStub{busy: map[string]bool{"practice-busy": true}}),
	})
	return router, metrics
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRouterLatestRun(t *testing.T) {
	router, _ := newTestRouter(nil)

	w := serve(router, http.MethodGet, "/api/v1/runs/practice-1/latest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body struct {
		Data models.AssignmentRun `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.Data.ID)
	assert.Equal(t, []string{"s2"}, body.Data.Unassigned)

	w = serve(router, http.MethodGet, "/api/v1/runs/practice-2/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRouterTriggerRun(t *testing.T) {
	router, _ := newTestRouter(nil)

	w := serve(router, http.MethodPost, "/api/v1/runs/practice-1")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "job-practice-1")

	w = serve(router, http.MethodPost, "/api/v1/runs/practice-busy")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "RUN_IN_PROGRESS")
}

func TestRouterTriggerWithoutScheduler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterDeps{
		Ops:         NewOpsHandler(nil, nil),
		Assignments: NewAssignmentHandler(runSummaryStub{}, nil),
	})

	w := serve(router, http.MethodPost, "/runs/practice-1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouterHealthAndReadiness(t *testing.T) {
	router, _ := newTestRouter(pingStub{})
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/ready").Code)

	router, _ = newTestRouter(pingStub{err: errors.New("connection refused")})
	w := serve(router, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouterMetricsExposeRequests(t *testing.T) {
	router, _ := newTestRouter(nil)
	serve(router, http.MethodGet, "/api/v1/runs/practice-1/latest")

	w := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/runs/:practiceID/latest",status="200"} 1`)
	assert.False(t, strings.Contains(body, `path="/metrics"`))
}

func TestRouterServesSwaggerDocs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := RouterDeps{
		Ops:         NewOpsHandler(nil, nil),
		Assignments: NewAssignmentHandler(runSummaryStub{}, nil),
		Docs:        true,
	}

	w := serve(NewRouter(deps), http.MethodGet, "/docs/doc.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/runs/{practiceID}/latest")
	assert.Contains(t, w.Body.String(), "AssignmentRun")

	deps.Docs = false
	assert.Equal(t, http.StatusNotFound, serve(NewRouter(deps), http.MethodGet, "/docs/doc.json").Code)
}
