package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

// RunItemRepo is the Postgres-backed repository.RunItemRepository.
type RunItemRepo struct{ db *sql.DB }

func NewRunItemRepo(db *sql.DB) repository.RunItemRepository {
	return &RunItemRepo{db: db}
}

const runItemColumns = `id, run_id, item_id, state, started_at, completed_at, error, tokens, cost`

func scanRunItem(row interface{ Scan(...any) error }) (*entity.RunItem, error) {
	var ri entity.RunItem
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(&ri.ID, &ri.RunID, &ri.ItemID, &ri.State, &startedAt, &completedAt, &ri.Error, &ri.Tokens, &ri.Cost); err != nil {
		return nil, err
	}
	if startedAt.Valid {
		t := startedAt.Time
		ri.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		ri.CompletedAt = &t
	}
	return &ri, nil
}

func (r *RunItemRepo) CreateMissing(ctx context.Context, runID int64, itemIDs []int64) ([]*entity.RunItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	const query = `
INSERT INTO run_items (run_id, item_id, state)
SELECT $1, item_id, 'QUEUED' FROM unnest($2::bigint[]) AS item_id
ON CONFLICT (run_id, item_id) DO NOTHING
RETURNING ` + runItemColumns
	rows, err := r.db.QueryContext(ctx, query, runID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("CreateMissing: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.RunItem
	for rows.Next() {
		ri, err := scanRunItem(rows)
		if err != nil {
			return nil, fmt.Errorf("CreateMissing: Scan: %w", err)
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

func (r *RunItemRepo) ListByRun(ctx context.Context, runID int64) ([]*entity.RunItem, error) {
	return r.listByRunAndStates(ctx, runID)
}

func (r *RunItemRepo) ListByRunAndStates(ctx context.Context, runID int64, states ...entity.RunItemState) ([]*entity.RunItem, error) {
	return r.listByRunAndStates(ctx, runID, states...)
}

func (r *RunItemRepo) listByRunAndStates(ctx context.Context, runID int64, states ...entity.RunItemState) ([]*entity.RunItem, error) {
	query := `SELECT ` + runItemColumns + ` FROM run_items WHERE run_id = $1`
	args := []any{runID}
	if len(states) > 0 {
		placeholders := make([]string, len(states))
		for i, s := range states {
			args = append(args, s)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += ` AND state IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listByRunAndStates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.RunItem
	for rows.Next() {
		ri, err := scanRunItem(rows)
		if err != nil {
			return nil, fmt.Errorf("listByRunAndStates: Scan: %w", err)
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

func (r *RunItemRepo) Get(ctx context.Context, runID, itemID int64) (*entity.RunItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runItemColumns+` FROM run_items WHERE run_id = $1 AND item_id = $2`, runID, itemID)
	ri, err := scanRunItem(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return ri, nil
}

func (r *RunItemRepo) TransitionTo(ctx context.Context, runID, itemID int64, item *entity.RunItem) error {
	const query = `
UPDATE run_items SET state = $1, started_at = $2, completed_at = $3, error = $4, tokens = $5, cost = $6
WHERE run_id = $7 AND item_id = $8`
	res, err := r.db.ExecContext(ctx, query, item.State, item.StartedAt, item.CompletedAt, item.Error,
		item.Tokens, item.Cost, runID, itemID)
	if err != nil {
		return fmt.Errorf("TransitionTo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *RunItemRepo) CancelQueued(ctx context.Context, runID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE run_items SET state = 'CANCELLED' WHERE run_id = $1 AND state = 'QUEUED'`, runID)
	if err != nil {
		return 0, fmt.Errorf("CancelQueued: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *RunItemRepo) ItemInActiveRunItem(ctx context.Context, itemID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM run_items WHERE item_id = $1 AND state IN ('QUEUED', 'PROCESSING'))`,
		itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ItemInActiveRunItem: %w", err)
	}
	return exists, nil
}

func (r *RunItemRepo) CountAndCostByFeedSince(ctx context.Context, feedID int64, since time.Time) (int, float64, error) {
	const query = `
SELECT COUNT(*), COALESCE(SUM(run_items.cost), 0)
FROM run_items
JOIN items ON items.id = run_items.item_id
WHERE items.feed_id = $1 AND run_items.state = 'COMPLETED' AND run_items.completed_at >= $2`
	var count int
	var cost float64
	err := r.db.QueryRowContext(ctx, query, feedID, since).Scan(&count, &cost)
	if err != nil {
		return 0, 0, fmt.Errorf("CountAndCostByFeedSince: %w", err)
	}
	return count, cost, nil
}

func (r *RunItemRepo) CountByRunAndState(ctx context.Context, runID int64) (entity.RunCounters, error) {
	const query = `
SELECT
	COUNT(*) FILTER (WHERE state = 'QUEUED'),
	COUNT(*) FILTER (WHERE state = 'PROCESSING'),
	COUNT(*) FILTER (WHERE state = 'COMPLETED'),
	COUNT(*) FILTER (WHERE state = 'FAILED'),
	COUNT(*) FILTER (WHERE state IN ('SKIPPED', 'CANCELLED')),
	COUNT(*)
FROM run_items WHERE run_id = $1`
	var c entity.RunCounters
	err := r.db.QueryRowContext(ctx, query, runID).Scan(&c.Queued, &c.Processing, &c.Completed, &c.Failed, &c.Skipped, &c.TotalItems)
	if err != nil {
		return entity.RunCounters{}, fmt.Errorf("CountByRunAndState: %w", err)
	}
	return c, nil
}
