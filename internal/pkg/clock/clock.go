// Package clock abstracts time.Now so run-level watchdogs, governor budgets,
// and the auto-analysis pump's batching window can be driven by a fake
// clock in tests, the same way the teacher's pkg/ratelimit/interfaces.go
// Clock decouples its limiter from the system clock.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by time.Now.
type System struct{}

func (System) Now() time.Time { return time.Now() }
