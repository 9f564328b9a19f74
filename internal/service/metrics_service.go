package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/practicum-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for assignment runs
// and the ops HTTP surface.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	runDuration        *prometheus.HistogramVec
	runTotal           *prometheus.CounterVec
	studentsAssigned   *prometheus.CounterVec
	studentsUnassigned *prometheus.GaugeVec
	offProfile         prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assignment_run_duration_seconds",
		Help:    "Duration of assignment runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	runTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_runs_total",
		Help: "Total number of assignment runs by outcome",
	}, []string{"outcome"})

	studentsAssigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_students_assigned_total",
		Help: "Students placed on a project, by phase",
	}, []string{"phase"})

	studentsUnassigned := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "assignment_students_unassigned",
		Help: "Students left without a project after the latest run of a practice",
	}, []string{"practice_id"})

	offProfile := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignment_off_profile_total",
		Help: "Assignments to projects with no requirement for the student's major and year",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		runDuration, runTotal, studentsAssigned, studentsUnassigned, offProfile, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		runDuration:        runDuration,
		runTotal:           runTotal,
		studentsAssigned:   studentsAssigned,
		studentsUnassigned: studentsUnassigned,
		offProfile:         offProfile,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveAssignmentRun records the duration and outcome of a run.
func (m *MetricsService) ObserveAssignmentRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.runTotal.WithLabelValues(outcome).Inc()
}

// RecordAssignments accumulates per-phase placements of a finished run.
func (m *MetricsService) RecordAssignments(run *models.AssignmentRun) {
	if m == nil || run == nil {
		return
	}
	for _, a := range run.Assignments {
		m.studentsAssigned.WithLabelValues(string(a.Phase)).Inc()
		if a.OffProfile {
			m.offProfile.Inc()
		}
	}
	m.studentsUnassigned.WithLabelValues(run.PracticeID).Set(float64(len(run.Unassigned)))
}
