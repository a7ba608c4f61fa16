package metrics

import (
	"strconv"
	"time"
)

// RecordHTTPRequest records an HTTP request with its metadata.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordItemIngested records a successfully stored (newly-inserted) item for feedID.
func RecordItemIngested(feedID int64) {
	ItemsProcessedTotal.WithLabelValues("ingested").Inc()
}

// RecordItemDuplicated records a dedup hit during ingest.
func RecordItemDuplicated() {
	ItemsProcessedTotal.WithLabelValues("duplicated").Inc()
}

// RecordItemFailed records an ingest failure (extraction or validation).
func RecordItemFailed() {
	ItemsProcessedTotal.WithLabelValues("failed").Inc()
}

// RecordFeedFetch records one feed fetch attempt outcome and, when the feed
// ran past its scheduled time, the lag.
func RecordFeedFetch(feedID int64, outcome string, lag time.Duration) {
	FeedsFetchedTotal.WithLabelValues(outcome).Inc()
	if lag > 0 {
		FetchLagMinutes.WithLabelValues(strconv.FormatInt(feedID, 10)).Observe(lag.Minutes())
	}
}

// RecordError records an error by originating component and kind, per the
// error-kind taxonomy (validation_error, fetch_timeout, breaker_open, ...).
func RecordError(component, kind string) {
	ErrorsTotal.WithLabelValues(component, kind).Inc()
}

// RecordLLMCall records one provider call's outcome and latency.
func RecordLLMCall(model, status string, duration time.Duration) {
	APICallsTotal.WithLabelValues(model, status).Inc()
	LLMRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordAnalysis records the end-to-end duration of classifying one item.
func RecordAnalysis(duration time.Duration) {
	AnalysisDuration.Observe(duration.Seconds())
}

// RecordQueueWait records how long a run item waited QUEUED before a worker
// picked it up.
func RecordQueueWait(wait time.Duration) {
	QueueWaitDuration.Observe(wait.Seconds())
}

// RecordBatchSize records the number of items materialized into one run.
func RecordBatchSize(n int) {
	BatchSize.Observe(float64(n))
}

// SetQueueDepth, SetActiveItems and the gauges below are polled periodically
// from the run governor/semaphore rather than incremented inline, since they
// reflect point-in-time state rather than discrete events.
func SetQueueDepth(n int)               { QueueDepth.Set(float64(n)) }
func SetActiveItems(n int)              { ActiveItems.Set(float64(n)) }
func SetQueueUtilization(ratio float64) { QueueUtilization.Set(ratio) }
func SetPendingAutoCount(n int)         { PendingAutoCount.Set(float64(n)) }
func SetAnalyzedRatio(ratio float64)    { AnalyzedRatio.Set(ratio) }

// SetBreakerState records a circuit breaker's state: 0=closed, 1=half-open, 2=open.
func SetBreakerState(component string, state int) {
	BreakerState.WithLabelValues(component).Set(float64(state))
}

// SetLimiterRate records a rate limiter's current configured rate.
func SetLimiterRate(limiter string, rate float64) {
	LimiterRate.WithLabelValues(limiter).Set(rate)
}

// RecordBuildInfo stamps the build_info gauge for the running version.
func RecordBuildInfo(version string) {
	BuildInfo.WithLabelValues(version).Set(1)
}
