package scheduler

import (
	"math"
	"math/rand"
	"time"
)

// nextInterval computes the next fetch interval for a feed given its
// configured base interval, the scheduler's error threshold/backoff
// policy, and whether the just-completed fetch succeeded.
//
// Success: next = base × jitter(0.9..1.1), consecutive_failures resets to 0.
// Failure below threshold: same as success, but consecutive_failures is not reset.
// Failure at/above threshold: next = base × 2^min(failures-threshold, maxDoublings) × jitter(0.9..1.1).
// The result is capped at cfg.MaxInterval.
func (c Config) nextInterval(baseMinutes int, consecutiveFailures int, success bool) time.Duration {
	base := time.Duration(baseMinutes) * time.Minute

	var interval time.Duration
	if success || consecutiveFailures < c.ErrorThreshold {
		interval = base
	} else {
		doublings := consecutiveFailures - c.ErrorThreshold
		if doublings > c.MaxBackoffDoublings {
			doublings = c.MaxBackoffDoublings
		}
		interval = base * time.Duration(math.Pow(2, float64(doublings)))
	}

	interval = addJitter(interval, 0.1)

	if interval > c.MaxInterval {
		interval = c.MaxInterval
	}
	return interval
}

// addJitter multiplies duration by a random factor in [1-fraction, 1+fraction].
// #nosec G404 -- math/rand is acceptable for scheduling jitter; cryptographic
// randomness is not required to avoid thundering-herd fetch timing.
func addJitter(duration time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return duration
	}
	factor := 1 - fraction + rand.Float64()*2*fraction
	return time.Duration(float64(duration) * factor)
}
