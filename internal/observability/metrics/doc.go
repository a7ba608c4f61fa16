// Package metrics provides the Prometheus metrics registry and recording
// utilities for the ingest-plus-analysis pipeline.
//
// This package centralizes every metric named in the metrics taxonomy:
//   - HTTP request metrics (duration, count, status)
//   - Ingest metrics (items by status, feeds fetched by outcome, fetch lag)
//   - Analysis metrics (LLM calls by model/status, analysis duration, batch size)
//   - Pipeline gauges (queue depth, active items, breaker state, limiter rate)
//
// All metrics are registered with promauto against the Prometheus default
// registry and exposed via /metrics/prometheus.
package metrics
