// Package entity defines the core domain entities and validation logic for the
// ingestion-plus-analysis control plane: feeds, items, templates, analysis runs
// and their supporting telemetry and governance records.
package entity

import "time"

// FeedStatus is the lifecycle state of a Feed.
type FeedStatus string

const (
	FeedStatusActive FeedStatus = "ACTIVE"
	FeedStatusPaused FeedStatus = "PAUSED"
	FeedStatusError  FeedStatus = "ERROR"
)

// FeedFailureThreshold is the consecutive-failure count at which a feed is
// considered to be in FeedStatusError (see Feed.Validate).
const FeedFailureThreshold = 5

// Feed represents one RSS/Atom source the scheduler drives independently.
type Feed struct {
	ID                 int64
	SourceURL          string // unique, canonicalized
	Title               string
	Status              FeedStatus
	BaseIntervalMinutes int // 5..1440
	AutoAnalyze         bool
	TemplateID          *int64 // nil => template resolved by URL match / universal
	NextFetchAt         time.Time
	ConsecutiveFailures int
	LastFetchedAt       *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Validate checks the feed's field invariants, including that
// status=ERROR implies consecutive_failures >= failure_threshold.
func (f *Feed) Validate() error {
	if f.SourceURL == "" {
		return &ValidationError{Field: "source_url", Message: "must not be empty"}
	}
	if f.BaseIntervalMinutes < 5 || f.BaseIntervalMinutes > 1440 {
		return &ValidationError{Field: "base_interval_minutes", Message: "must be between 5 and 1440"}
	}
	if f.Status == FeedStatusError && f.ConsecutiveFailures < FeedFailureThreshold {
		return &ValidationError{Field: "status", Message: "ERROR status requires consecutive_failures >= failure threshold"}
	}
	return nil
}

// IsDue reports whether the feed should be dispatched to the fetcher at `now`.
func (f *Feed) IsDue(now time.Time) bool {
	return f.Status == FeedStatusActive && !f.NextFetchAt.After(now)
}
