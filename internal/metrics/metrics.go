// Package metrics exposes Prometheus instrumentation for the orchestrator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the orchestrator.
type Metrics struct {
	registry *prometheus.Registry

	// Tool call metrics
	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
	ToolCallErrors   *prometheus.CounterVec

	// Worker metrics
	WorkersRunning prometheus.Gauge
	WorkerRestarts *prometheus.CounterVec

	// Rate limiter metrics
	RateLimitRejections *prometheus.CounterVec

	// Analysis run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_calls_total",
				Help: "Total number of tool calls routed through the orchestrator",
			},
			[]string{"worker", "operation", "status"},
		),
		ToolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_call_duration_seconds",
				Help:    "Duration of tool calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"worker", "operation"},
		),
		ToolCallErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_call_errors_total",
				Help: "Total number of failed tool calls by error kind",
			},
			[]string{"worker", "operation", "kind"},
		),

		WorkersRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "workers_running",
				Help: "Number of worker processes currently running",
			},
		),
		WorkerRestarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_restarts_total",
				Help: "Total number of worker restarts",
			},
			[]string{"worker"},
		),

		RateLimitRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_rejections_total",
				Help: "Total number of calls refused by the quota guard",
			},
			[]string{"worker"},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analysis_runs_total",
				Help: "Total number of analysis runs",
			},
			[]string{"kind"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analysis_run_duration_seconds",
				Help:    "Duration of analysis runs in seconds",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		m.ToolCallsTotal,
		m.ToolCallDuration,
		m.ToolCallErrors,
		m.WorkersRunning,
		m.WorkerRestarts,
		m.RateLimitRejections,
		m.RunsTotal,
		m.RunDuration,
	)

	return m
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
