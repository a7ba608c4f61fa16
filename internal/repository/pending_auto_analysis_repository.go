package repository

import (
	"context"

	"feedctl/internal/domain/entity"
)

// PendingAutoAnalysisRepository persists auto-enrolment intake and batches.
type PendingAutoAnalysisRepository interface {
	Create(ctx context.Context, batch *entity.PendingAutoAnalysis) error
	Get(ctx context.Context, id int64) (*entity.PendingAutoAnalysis, error)
	// ListByStatus returns entries with the given status, oldest first.
	// limit <= 0 means unlimited.
	ListByStatus(ctx context.Context, status entity.PendingAutoAnalysisStatus, limit int) ([]*entity.PendingAutoAnalysis, error)
	ListNonTerminalByFeed(ctx context.Context, feedID int64) ([]*entity.PendingAutoAnalysis, error)
	SetStatus(ctx context.Context, id int64, status entity.PendingAutoAnalysisStatus) error
	AttachRun(ctx context.Context, id int64, runID int64) error

	// ItemInNonTerminalBatch reports whether an item id already appears in
	// a PENDING or PROCESSING batch, so the pump doesn't double-enroll an
	// item still waiting on an earlier batch.
	ItemInNonTerminalBatch(ctx context.Context, itemID int64) (bool, error)
}

// IntakeQueue receives (feed_id, item_id) pairs from the ingest pipeline for
// the auto-analysis pump to batch. It is an in-process channel abstraction,
// not a store table — see internal/usecase/autopump.
type IntakeQueue interface {
	Enqueue(feedID, itemID int64)
}

// IntakeEntry is one (feed_id, item_id) pair handed from ingest to the pump.
type IntakeEntry struct {
	FeedID int64
	ItemID int64
}
