package scheduler

import "time"

// Config governs the scheduler tick loop and its interval policy.
type Config struct {
	// TickInterval is how often tick() runs; must be ≤ 60s.
	TickInterval time.Duration

	// MaxConcurrentFetches bounds simultaneous in-flight feed fetches.
	MaxConcurrentFetches int

	// StaleTimeout is the age at which an in-flight fetch is abandoned
	// and counted as TIMEOUT.
	StaleTimeout time.Duration

	// ErrorThreshold is the consecutive-failure count after which the
	// backoff policy's exponential phase begins.
	ErrorThreshold int

	// MaxBackoffDoublings caps the exponential phase (2^min(cf-threshold, cap)).
	MaxBackoffDoublings int

	// MaxInterval is the upper cap on the computed next-fetch interval.
	MaxInterval time.Duration

	// DueBatchSize caps how many due feeds one tick claims at once.
	DueBatchSize int
}

func DefaultConfig() Config {
	return Config{
		TickInterval:         30 * time.Second,
		MaxConcurrentFetches: 10,
		StaleTimeout:         300 * time.Second,
		ErrorThreshold:       5,
		MaxBackoffDoublings:  3,
		MaxInterval:          24 * time.Hour,
		DueBatchSize:         50,
	}
}
