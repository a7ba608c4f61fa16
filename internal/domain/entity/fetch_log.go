package entity

import "time"

// FetchOutcome is the terminal classification of one scheduler-driven fetch.
type FetchOutcome string

const (
	FetchOutcomeSuccess FetchOutcome = "SUCCESS"
	FetchOutcomeError   FetchOutcome = "ERROR"
	FetchOutcomeEmpty   FetchOutcome = "EMPTY"
	FetchOutcomeTimeout FetchOutcome = "TIMEOUT"
)

// FetchLog is an append-only audit row for one fetch attempt of one feed.
type FetchLog struct {
	ID              int64
	FeedID          int64
	StartedAt       time.Time
	CompletedAt     time.Time
	Outcome         FetchOutcome
	ItemsFound      int
	ItemsNew        int
	ErrorMessage    string
	ResponseTimeMs  int64
}
