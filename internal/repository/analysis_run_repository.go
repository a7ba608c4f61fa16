package repository

import (
	"context"
	"time"

	"feedctl/internal/domain/entity"
)

// AnalysisRunRepository persists AnalysisRun aggregates.
type AnalysisRunRepository interface {
	Create(ctx context.Context, run *entity.AnalysisRun) error
	Get(ctx context.Context, id int64) (*entity.AnalysisRun, error)
	List(ctx context.Context, activeOnly bool, limit int) ([]*entity.AnalysisRun, error)

	// UpdateStatus transitions a run's status, stamping started_at /
	// completed_at as appropriate. Implementations must reject the update
	// (return entity.ErrConflict) if the run is already terminal and the
	// caller is not setting a terminal-to-terminal no-op.
	UpdateStatus(ctx context.Context, id int64, status entity.RunStatus, now time.Time) error

	// UpdateCounters persists the run's current RunCounters and ActualCost.
	UpdateCounters(ctx context.Context, id int64, counters entity.RunCounters, actualCost float64) error

	SetCancelRequested(ctx context.Context, id int64) error

	// CountByTriggerSince counts runs with the given trigger created at or
	// after `since`, for daily/hourly governor budgets.
	CountByTriggerSince(ctx context.Context, trigger entity.RunTrigger, since time.Time) (int, error)
	// CountSince counts all runs (any trigger) created at or after `since`.
	CountSince(ctx context.Context, since time.Time) (int, error)
	// CountActive counts runs in RUNNING or PENDING state.
	CountActive(ctx context.Context) (int, error)

	// ListRunningOlderThan returns RUNNING runs started before the cutoff,
	// for the global watchdog that force-fails runs stuck past the
	// configured ceiling.
	ListRunningOlderThan(ctx context.Context, cutoff time.Time) ([]*entity.AnalysisRun, error)
}
