package repository

import (
	"context"
	"time"

	"feedctl/internal/domain/entity"
)

// FeedRepository persists Feed rows and the scheduler bookkeeping fields
// (next_fetch_at, consecutive_failures, last_fetched_at) that live on them.
type FeedRepository interface {
	Create(ctx context.Context, feed *entity.Feed) error
	Get(ctx context.Context, id int64) (*entity.Feed, error)
	GetByURL(ctx context.Context, url string) (*entity.Feed, error)
	List(ctx context.Context) ([]*entity.Feed, error)
	Update(ctx context.Context, feed *entity.Feed) error
	Delete(ctx context.Context, id int64) error

	// ListDue returns ACTIVE feeds whose next_fetch_at <= now, ascending
	// next_fetch_at, capped at limit. Used by the scheduler tick.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.Feed, error)

	// RecordFetchOutcome atomically updates scheduling state after a fetch:
	// next fetch time, consecutive failure counter, status, last_fetched_at.
	RecordFetchOutcome(ctx context.Context, feedID int64, nextFetchAt time.Time, consecutiveFailures int, status entity.FeedStatus, fetchedAt time.Time) error

	SetStatus(ctx context.Context, feedID int64, status entity.FeedStatus) error
	SetStatusAll(ctx context.Context, status entity.FeedStatus) error
	SetInterval(ctx context.Context, feedID int64, minutes int) error
	SetIntervalAll(ctx context.Context, minutes int) error
}
