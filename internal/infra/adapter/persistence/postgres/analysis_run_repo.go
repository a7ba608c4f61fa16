package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

// AnalysisRunRepo is the Postgres-backed repository.AnalysisRunRepository.
type AnalysisRunRepo struct{ db *sql.DB }

func NewAnalysisRunRepo(db *sql.DB) repository.AnalysisRunRepository {
	return &AnalysisRunRepo{db: db}
}

const runColumns = `id, scope, params, status, queued, processing, completed, failed, skipped, total_items,
	estimated_cost, actual_cost, created_at, started_at, completed_at, trigger, model_tag, cancel_requested`

func scanRun(row interface{ Scan(...any) error }) (*entity.AnalysisRun, error) {
	var run entity.AnalysisRun
	var scopeJSON, paramsJSON []byte
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(&run.ID, &scopeJSON, &paramsJSON, &run.Status,
		&run.Counters.Queued, &run.Counters.Processing, &run.Counters.Completed, &run.Counters.Failed,
		&run.Counters.Skipped, &run.Counters.TotalItems, &run.EstimatedCost, &run.ActualCost,
		&run.CreatedAt, &startedAt, &completedAt, &run.Trigger, &run.ModelTag, &run.CancelRequested); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scopeJSON, &run.Scope); err != nil {
		return nil, fmt.Errorf("unmarshal scope: %w", err)
	}
	if err := json.Unmarshal(paramsJSON, &run.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if startedAt.Valid {
		t := startedAt.Time
		run.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

func (r *AnalysisRunRepo) Create(ctx context.Context, run *entity.AnalysisRun) error {
	scopeJSON, _ := json.Marshal(run.Scope)
	paramsJSON, _ := json.Marshal(run.Params)
	const query = `
INSERT INTO analysis_runs (scope, params, status, total_items, estimated_cost, trigger, model_tag)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, scopeJSON, paramsJSON, run.Status, run.Counters.TotalItems,
		run.EstimatedCost, run.Trigger, run.ModelTag).Scan(&run.ID, &run.CreatedAt)
}

func (r *AnalysisRunRepo) Get(ctx context.Context, id int64) (*entity.AnalysisRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM analysis_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return run, nil
}

func (r *AnalysisRunRepo) List(ctx context.Context, activeOnly bool, limit int) ([]*entity.AnalysisRun, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs`
	var args []any
	if activeOnly {
		query += ` WHERE status IN ('PENDING', 'RUNNING', 'PAUSED')`
	}
	query += ` ORDER BY created_at DESC LIMIT $1`
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *AnalysisRunRepo) UpdateStatus(ctx context.Context, id int64, status entity.RunStatus, now time.Time) error {
	var query string
	switch status {
	case entity.RunStatusRunning:
		query = `UPDATE analysis_runs SET status = $1, started_at = COALESCE(started_at, $2) WHERE id = $3 AND status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')`
	case entity.RunStatusCompleted, entity.RunStatusFailed, entity.RunStatusCancelled:
		query = `UPDATE analysis_runs SET status = $1, completed_at = $2 WHERE id = $3 AND status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')`
	default:
		query = `UPDATE analysis_runs SET status = $1 WHERE id = $3 AND status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')`
	}
	res, err := r.db.ExecContext(ctx, query, status, now, id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrConflict
	}
	return nil
}

func (r *AnalysisRunRepo) UpdateCounters(ctx context.Context, id int64, c entity.RunCounters, actualCost float64) error {
	const query = `
UPDATE analysis_runs SET queued = $1, processing = $2, completed = $3, failed = $4, skipped = $5,
	total_items = $6, actual_cost = $7 WHERE id = $8`
	_, err := r.db.ExecContext(ctx, query, c.Queued, c.Processing, c.Completed, c.Failed, c.Skipped,
		c.TotalItems, actualCost, id)
	if err != nil {
		return fmt.Errorf("UpdateCounters: %w", err)
	}
	return nil
}

func (r *AnalysisRunRepo) SetCancelRequested(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE analysis_runs SET cancel_requested = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("SetCancelRequested: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *AnalysisRunRepo) CountByTriggerSince(ctx context.Context, trigger entity.RunTrigger, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_runs WHERE trigger = $1 AND created_at >= $2`, trigger, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountByTriggerSince: %w", err)
	}
	return count, nil
}

func (r *AnalysisRunRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_runs WHERE created_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountSince: %w", err)
	}
	return count, nil
}

func (r *AnalysisRunRepo) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_runs WHERE status IN ('RUNNING', 'PENDING')`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountActive: %w", err)
	}
	return count, nil
}

func (r *AnalysisRunRepo) ListRunningOlderThan(ctx context.Context, cutoff time.Time) ([]*entity.AnalysisRun, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs WHERE status = 'RUNNING' AND started_at < $1`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ListRunningOlderThan: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRunningOlderThan: Scan: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
