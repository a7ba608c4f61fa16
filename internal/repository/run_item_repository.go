package repository

import (
	"context"
	"time"

	"feedctl/internal/domain/entity"
)

// RunItemRepository persists the per-item progress rows inside a run.
type RunItemRepository interface {
	// CreateMissing inserts QUEUED RunItems for the given (run, item) pairs
	// that do not already have a row, so re-running materialization for a
	// run is idempotent. Returns the rows actually inserted.
	CreateMissing(ctx context.Context, runID int64, itemIDs []int64) ([]*entity.RunItem, error)

	ListByRun(ctx context.Context, runID int64) ([]*entity.RunItem, error)
	ListByRunAndStates(ctx context.Context, runID int64, states ...entity.RunItemState) ([]*entity.RunItem, error)
	Get(ctx context.Context, runID, itemID int64) (*entity.RunItem, error)

	// TransitionTo moves a run item to a new state, stamping timestamps,
	// error, tokens, and cost as applicable.
	TransitionTo(ctx context.Context, runID, itemID int64, item *entity.RunItem) error

	// CancelQueued transitions every QUEUED row of a run to CANCELLED.
	CancelQueued(ctx context.Context, runID int64) (int, error)

	CountByRunAndState(ctx context.Context, runID int64) (entity.RunCounters, error)

	// ItemInActiveRunItem reports whether the item already has a QUEUED or
	// PROCESSING row in any run, so the auto-analysis pump does not
	// re-enroll an item a run is already working on.
	ItemInActiveRunItem(ctx context.Context, itemID int64) (bool, error)

	// CountAndCostByFeedSince counts COMPLETED run items for feedID whose
	// completed_at falls on or after since, and sums their cost, for the
	// governor's per-feed daily/monthly cap checks.
	CountAndCostByFeedSince(ctx context.Context, feedID int64, since time.Time) (count int, costUSD float64, err error)
}
