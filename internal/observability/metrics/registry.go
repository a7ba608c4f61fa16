// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Pipeline metrics: items, feeds, fetch.
var (
	// ItemsProcessedTotal counts items by terminal processing status
	// (ingested, duplicated, failed).
	ItemsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_processed_total",
			Help: "Total number of feed items processed, by status",
		},
		[]string{"status"},
	)

	FeedsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeds_fetched_total",
			Help: "Total number of feed fetch attempts, by outcome",
		},
		[]string{"outcome"}, // success, error, empty, timeout
	)

	// ErrorsTotal counts errors by originating component and kind, per
	// the error-kind taxonomy (validation_error, fetch_timeout, breaker_open, ...).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors, by component and kind",
		},
		[]string{"component", "kind"},
	)

	FetchLagMinutes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_lag_minutes",
			Help:    "Minutes a feed ran past its scheduled next_fetch_at before being picked up",
			Buckets: []float64{0, 1, 2, 5, 10, 30, 60, 120, 360},
		},
		[]string{"feed_id"},
	)
)

// Analysis / classification metrics.
var (
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_api_calls_total",
			Help: "Total number of LLM provider calls, by model and status",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM provider request duration in seconds, by model",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"model"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "End-to-end duration of classifying a single item",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	QueueWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_queue_wait_seconds",
			Help:    "Time a run item spent QUEUED before a worker picked it up",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_batch_size",
			Help:    "Number of items materialized per analysis run",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analysis_queue_depth",
			Help: "Number of run items currently QUEUED across all runs",
		},
	)

	ActiveItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analysis_active_items",
			Help: "Number of run items currently PROCESSING",
		},
	)

	QueueUtilization = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analysis_queue_utilization_ratio",
			Help: "Fraction of the concurrency semaphore currently held (0..1)",
		},
	)

	PendingAutoCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_auto_analyses",
			Help: "Number of auto-analysis intake entries not yet PROCESSED",
		},
	)

	AnalyzedRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "items_analyzed_ratio",
			Help: "Fraction of stored items that have an item_analyses row",
		},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state per component (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)

	LimiterRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rate_limiter_current_rate",
			Help: "Current token bucket rate (events/sec) per limiter",
		},
		[]string{"limiter"},
	)
)

// BuildInfo carries the running build's version as a constant-1 info metric.
var BuildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Always 1; labels carry the running build's version",
	},
	[]string{"version"},
)
