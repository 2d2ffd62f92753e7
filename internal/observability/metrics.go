package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// STAC API call rate. Watch for: error vs success ratio per endpoint.
	STACRequestsTotal *prometheus.CounterVec

	// STAC request latency. Watch for: p95 > 2s (upstream degradation).
	STACRequestDuration *prometheus.HistogramVec

	// Per-station download outcomes.
	StationDownloadsTotal *prometheus.CounterVec

	// Observation rows parsed out of CSV payloads.
	RowsParsedTotal prometheus.Counter

	// Pipeline run outcomes.
	PipelineRunsTotal *prometheus.CounterVec

	// Wall time of a full extraction run.
	PipelineRunDuration prometheus.Histogram
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	STACRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stacRequestsTotal",
			Help: "Total number of STAC API requests",
		},
		[]string{"endpoint", "status"},
	)
	STACRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stacRequestDurationSeconds",
			Help:    "STAC API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)
	StationDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationDownloadsTotal",
			Help: "Per-station download outcomes",
		},
		[]string{"station", "status"},
	)
	RowsParsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rowsParsedTotal",
			Help: "Observation rows parsed out of CSV payloads",
		},
	)
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipelineRunsTotal",
			Help: "Extraction pipeline run outcomes",
		},
		[]string{"status"},
	)
	PipelineRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipelineRunDurationSeconds",
			Help:    "Wall time of a full extraction run in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	registry.MustRegister(
		STACRequestsTotal, STACRequestDuration,
		StationDownloadsTotal, RowsParsedTotal,
		PipelineRunsTotal, PipelineRunDuration,
	)
}

// StatusLabel maps an HTTP status code to the metric status label.
func StatusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}

// MetricsHandler returns an http.Handler that serves application and
// runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
