package repository

import (
	"context"

	"feedctl/internal/domain/entity"
)

// FetchLogRepository is the append-only audit trail for feed fetches.
type FetchLogRepository interface {
	Create(ctx context.Context, log *entity.FetchLog) error
	ListByFeed(ctx context.Context, feedID int64, limit int) ([]*entity.FetchLog, error)
}

// FeedHealthRepository maintains the derived 1:1 health row per feed.
type FeedHealthRepository interface {
	Get(ctx context.Context, feedID int64) (*entity.FeedHealth, error)
	Upsert(ctx context.Context, health *entity.FeedHealth) error
}
