package repository

import (
	"context"
	"time"

	"feedctl/internal/domain/entity"
)

// ItemFilters narrows the listing returned by GET /items.
type ItemFilters struct {
	FeedID      *int64
	SinceHours  *int
	Category    *string
	ImpactMin   *float64
	Sentiment   *entity.SentimentLabel
	Limit       int
	Offset      int
	SortDesc    bool
}

// ItemRepository persists immutable ingested items.
type ItemRepository interface {
	// Create inserts an item. Returns entity.ErrDuplicateContentHash if an
	// item with the same content hash already exists (the dedup path).
	Create(ctx context.Context, item *entity.Item) error
	Get(ctx context.Context, id int64) (*entity.Item, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.Item, error)
	List(ctx context.Context, filters ItemFilters) ([]*entity.Item, error)
	// Count returns the number of items matching filters, ignoring Limit
	// and Offset, for total-page computation ahead of a paginated List.
	Count(ctx context.Context, filters ItemFilters) (int64, error)

	// ListLatest returns the n most recently ingested items, newest first.
	ListLatest(ctx context.Context, n int) ([]*entity.Item, error)
	// ListByFeeds returns items owned by any of the given feeds.
	ListByFeeds(ctx context.Context, feedIDs []int64, limit int) ([]*entity.Item, error)
	// ListByTimeRange returns items published within [from, to].
	ListByTimeRange(ctx context.Context, from, to time.Time) ([]*entity.Item, error)

	ExistsByContentHash(ctx context.Context, hash string) (bool, error)
}
