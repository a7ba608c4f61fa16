package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

// QueuedRunRepo is the Postgres-backed repository.QueuedRunRepository.
type QueuedRunRepo struct{ db *sql.DB }

func NewQueuedRunRepo(db *sql.DB) repository.QueuedRunRepository {
	return &QueuedRunRepo{db: db}
}

func scanQueuedRun(row interface{ Scan(...any) error }) (*entity.QueuedRun, error) {
	var qr entity.QueuedRun
	var scopeJSON, paramsJSON []byte
	if err := row.Scan(&qr.ID, &scopeJSON, &paramsJSON, &qr.Trigger, &qr.EnqueuedAt, &qr.Held); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scopeJSON, &qr.Scope); err != nil {
		return nil, fmt.Errorf("unmarshal scope: %w", err)
	}
	if err := json.Unmarshal(paramsJSON, &qr.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return &qr, nil
}

func (r *QueuedRunRepo) Enqueue(ctx context.Context, qr *entity.QueuedRun) error {
	scopeJSON, _ := json.Marshal(qr.Scope)
	paramsJSON, _ := json.Marshal(qr.Params)
	const query = `
INSERT INTO queued_runs (scope, params, trigger)
VALUES ($1, $2, $3)
RETURNING id, enqueued_at`
	return r.db.QueryRowContext(ctx, query, scopeJSON, paramsJSON, qr.Trigger).Scan(&qr.ID, &qr.EnqueuedAt)
}

func (r *QueuedRunRepo) Dequeue(ctx context.Context) (*entity.QueuedRun, error) {
	const query = `
SELECT id, scope, params, trigger, enqueued_at, held FROM queued_runs
WHERE held = FALSE ORDER BY enqueued_at ASC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query)
	qr, err := scanQueuedRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Dequeue: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM queued_runs WHERE id = $1`, qr.ID); err != nil {
		return nil, fmt.Errorf("Dequeue: delete: %w", err)
	}
	return qr, nil
}

func (r *QueuedRunRepo) List(ctx context.Context) ([]*entity.QueuedRun, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, scope, params, trigger, enqueued_at, held FROM queued_runs ORDER BY enqueued_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.QueuedRun
	pos := 0
	for rows.Next() {
		qr, err := scanQueuedRun(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		pos++
		qr.Position = pos
		out = append(out, qr)
	}
	return out, rows.Err()
}

func (r *QueuedRunRepo) Remove(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM queued_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *QueuedRunRepo) HoldAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE queued_runs SET held = TRUE`)
	if err != nil {
		return fmt.Errorf("HoldAll: %w", err)
	}
	return nil
}

func (r *QueuedRunRepo) ReleaseAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE queued_runs SET held = FALSE`)
	if err != nil {
		return fmt.Errorf("ReleaseAll: %w", err)
	}
	return nil
}

// FeedLimitsRepo is the Postgres-backed repository.FeedLimitsRepository.
type FeedLimitsRepo struct{ db *sql.DB }

func NewFeedLimitsRepo(db *sql.DB) repository.FeedLimitsRepository {
	return &FeedLimitsRepo{db: db}
}

func (r *FeedLimitsRepo) Get(ctx context.Context, feedID int64) (*entity.FeedLimits, error) {
	const query = `
SELECT feed_id, daily_analyses, daily_cost_usd, monthly_cost_usd, alert_threshold_usd, auto_disable_on_breach, emergency_stop
FROM feed_limits WHERE feed_id = $1`
	var fl entity.FeedLimits
	err := r.db.QueryRowContext(ctx, query, feedID).Scan(&fl.FeedID, &fl.DailyAnalyses, &fl.DailyCostUSD,
		&fl.MonthlyCostUSD, &fl.AlertThresholdUSD, &fl.AutoDisableOnBreach, &fl.EmergencyStop)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &fl, nil
}

func (r *FeedLimitsRepo) Upsert(ctx context.Context, fl *entity.FeedLimits) error {
	const query = `
INSERT INTO feed_limits (feed_id, daily_analyses, daily_cost_usd, monthly_cost_usd, alert_threshold_usd, auto_disable_on_breach, emergency_stop)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (feed_id) DO UPDATE SET
	daily_analyses = EXCLUDED.daily_analyses,
	daily_cost_usd = EXCLUDED.daily_cost_usd,
	monthly_cost_usd = EXCLUDED.monthly_cost_usd,
	alert_threshold_usd = EXCLUDED.alert_threshold_usd,
	auto_disable_on_breach = EXCLUDED.auto_disable_on_breach,
	emergency_stop = EXCLUDED.emergency_stop`
	_, err := r.db.ExecContext(ctx, query, fl.FeedID, fl.DailyAnalyses, fl.DailyCostUSD, fl.MonthlyCostUSD,
		fl.AlertThresholdUSD, fl.AutoDisableOnBreach, fl.EmergencyStop)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}
