package entity

import "time"

// FeedHealth is the 1:1 derived telemetry row for a feed, recomputed after
// every fetch outcome.
type FeedHealth struct {
	FeedID              int64
	SuccessRate7d        float64
	SuccessRate30d       float64
	AvgResponseTimeMs    float64
	Uptime7d             float64
	Uptime30d            float64
	ConsecutiveFailures  int
	LastSuccessAt        *time.Time
	LastFailureAt        *time.Time
	UpdatedAt            time.Time
}
