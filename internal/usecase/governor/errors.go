package governor

import "errors"

// ErrSystemHalted is returned by RequestRun while the emergency halt bit
// is set.
var ErrSystemHalted = errors.New("governor: system halted")

// ErrLimitExceeded is returned by RequestRun when the daily (or
// auto-reserved daily) budget is already exhausted. Unlike concurrency or
// hourly exhaustion, this rejects outright instead of queueing: a queued
// entry would still be blocked by the same cap until the window rolls
// over, so there is nothing to wait for within today's run.
var ErrLimitExceeded = errors.New("governor: daily run limit exceeded")
