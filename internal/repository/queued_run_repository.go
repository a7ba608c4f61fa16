package repository

import (
	"context"

	"feedctl/internal/domain/entity"
)

// QueuedRunRepository is the FIFO of runs parked by the governor because
// limits were exhausted, including the emergency-halt holding area.
type QueuedRunRepository interface {
	Enqueue(ctx context.Context, qr *entity.QueuedRun) error
	// Dequeue removes and returns the oldest non-held entry, or nil if empty.
	Dequeue(ctx context.Context) (*entity.QueuedRun, error)
	List(ctx context.Context) ([]*entity.QueuedRun, error)
	Remove(ctx context.Context, id int64) error

	// HoldAll marks every queued entry as held (emergency halt drains the
	// active queue into the holding area).
	HoldAll(ctx context.Context) error
	// ReleaseAll clears the held bit on every entry, restoring FIFO order
	// (emergency resume).
	ReleaseAll(ctx context.Context) error
}

// FeedLimitsRepository reads per-feed governor caps.
type FeedLimitsRepository interface {
	Get(ctx context.Context, feedID int64) (*entity.FeedLimits, error)
	Upsert(ctx context.Context, limits *entity.FeedLimits) error
}
