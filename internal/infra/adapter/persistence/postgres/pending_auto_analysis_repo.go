package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

// PendingAutoAnalysisRepo is the Postgres-backed repository.PendingAutoAnalysisRepository.
type PendingAutoAnalysisRepo struct{ db *sql.DB }

func NewPendingAutoAnalysisRepo(db *sql.DB) repository.PendingAutoAnalysisRepository {
	return &PendingAutoAnalysisRepo{db: db}
}

const pendingColumns = `id, feed_id, item_ids, status, created_at, processed_at, run_id`

func scanPending(row interface{ Scan(...any) error }) (*entity.PendingAutoAnalysis, error) {
	var p entity.PendingAutoAnalysis
	var processedAt sql.NullTime
	var runID sql.NullInt64
	var itemIDs []int64
	if err := row.Scan(&p.ID, &p.FeedID, &itemIDs, &p.Status, &p.CreatedAt, &processedAt, &runID); err != nil {
		return nil, err
	}
	p.ItemIDs = itemIDs
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	if runID.Valid {
		id := runID.Int64
		p.RunID = &id
	}
	return &p, nil
}

func (r *PendingAutoAnalysisRepo) Create(ctx context.Context, batch *entity.PendingAutoAnalysis) error {
	const query = `
INSERT INTO pending_auto_analyses (feed_id, item_ids, status)
VALUES ($1, $2, $3)
RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, batch.FeedID, batch.ItemIDs, batch.Status).Scan(&batch.ID, &batch.CreatedAt)
}

func (r *PendingAutoAnalysisRepo) Get(ctx context.Context, id int64) (*entity.PendingAutoAnalysis, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pendingColumns+` FROM pending_auto_analyses WHERE id = $1`, id)
	p, err := scanPending(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return p, nil
}

func (r *PendingAutoAnalysisRepo) ListByStatus(ctx context.Context, status entity.PendingAutoAnalysisStatus, limit int) ([]*entity.PendingAutoAnalysis, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_auto_analyses WHERE status = $1 ORDER BY created_at`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.PendingAutoAnalysis
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByStatus: Scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PendingAutoAnalysisRepo) ListNonTerminalByFeed(ctx context.Context, feedID int64) ([]*entity.PendingAutoAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+pendingColumns+` FROM pending_auto_analyses WHERE feed_id = $1 AND status IN ('PENDING', 'PROCESSING') ORDER BY created_at`, feedID)
	if err != nil {
		return nil, fmt.Errorf("ListNonTerminalByFeed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.PendingAutoAnalysis
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("ListNonTerminalByFeed: Scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PendingAutoAnalysisRepo) SetStatus(ctx context.Context, id int64, status entity.PendingAutoAnalysisStatus) error {
	var query string
	if status == entity.PendingAutoAnalysisCompleted || status == entity.PendingAutoAnalysisFailed {
		query = `UPDATE pending_auto_analyses SET status = $1, processed_at = now() WHERE id = $2`
	} else {
		query = `UPDATE pending_auto_analyses SET status = $1 WHERE id = $2`
	}
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("SetStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *PendingAutoAnalysisRepo) AttachRun(ctx context.Context, id int64, runID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE pending_auto_analyses SET run_id = $1 WHERE id = $2`, runID, id)
	if err != nil {
		return fmt.Errorf("AttachRun: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *PendingAutoAnalysisRepo) ItemInNonTerminalBatch(ctx context.Context, itemID int64) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM pending_auto_analyses
	WHERE status IN ('PENDING', 'PROCESSING') AND $1 = ANY(item_ids)
)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ItemInNonTerminalBatch: %w", err)
	}
	return exists, nil
}
