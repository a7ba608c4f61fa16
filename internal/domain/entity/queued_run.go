package entity

import "time"

// QueuedRun holds a RunCreateRequest the governor could not start
// immediately because daily/hourly/concurrency limits were exhausted.
type QueuedRun struct {
	ID         int64
	Scope      Scope
	Params     RunParams
	Trigger    RunTrigger
	EnqueuedAt time.Time
	Position   int // derived at read time, not persisted
	Held       bool // true while parked during an emergency halt
}
