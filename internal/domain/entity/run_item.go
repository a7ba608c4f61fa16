package entity

import "time"

// RunItemState is the per-item progress inside a run.
type RunItemState string

const (
	RunItemQueued     RunItemState = "QUEUED"
	RunItemProcessing RunItemState = "PROCESSING"
	RunItemCompleted  RunItemState = "COMPLETED"
	RunItemFailed     RunItemState = "FAILED"
	RunItemSkipped    RunItemState = "SKIPPED"
	RunItemCancelled  RunItemState = "CANCELLED"
)

// IsTerminal reports whether the run-item will not transition again.
func (s RunItemState) IsTerminal() bool {
	switch s {
	case RunItemCompleted, RunItemFailed, RunItemSkipped, RunItemCancelled:
		return true
	default:
		return false
	}
}

// RunItem is the unique (run_id, item_id) row tracking one item's journey
// through a run.
type RunItem struct {
	ID          int64
	RunID       int64
	ItemID      int64
	State       RunItemState
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
	Tokens      int
	Cost        float64
}
