package autopump

import "time"

// Config governs batching cadence and size for the auto-analysis pump.
type Config struct {
	// CheckInterval is how often buffered intake entries are cut into
	// PendingAutoAnalysis batches.
	CheckInterval time.Duration

	// MaxItemsPerRun caps how many item ids one batch (and so one
	// dispatched run) may contain.
	MaxItemsPerRun int

	// ModelTag is the model auto-triggered runs classify with, normally
	// the cheapest configured model.
	ModelTag string

	// DispatchInterval is how often PENDING batches are offered to the
	// governor.
	DispatchInterval time.Duration

	// ClosureInterval is how often PROCESSING batches are checked for
	// their attached run's terminal state.
	ClosureInterval time.Duration

	// ChannelBufferSize bounds the in-memory intake channel; Enqueue
	// drops and logs rather than blocking the ingest path once full.
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		CheckInterval:     30 * time.Second,
		MaxItemsPerRun:    200,
		ModelTag:          "gpt-4o-mini",
		DispatchInterval:  30 * time.Second,
		ClosureInterval:   15 * time.Second,
		ChannelBufferSize: 500,
	}
}
