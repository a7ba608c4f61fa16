package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

// FetchLogRepo is the Postgres-backed repository.FetchLogRepository.
type FetchLogRepo struct{ db *sql.DB }

func NewFetchLogRepo(db *sql.DB) repository.FetchLogRepository {
	return &FetchLogRepo{db: db}
}

func (r *FetchLogRepo) Create(ctx context.Context, log *entity.FetchLog) error {
	const query = `
INSERT INTO fetch_log (feed_id, started_at, completed_at, outcome, items_found, items_new, error_message, response_time_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	return r.db.QueryRowContext(ctx, query, log.FeedID, log.StartedAt, log.CompletedAt, log.Outcome,
		log.ItemsFound, log.ItemsNew, log.ErrorMessage, log.ResponseTimeMs).Scan(&log.ID)
}

func (r *FetchLogRepo) ListByFeed(ctx context.Context, feedID int64, limit int) ([]*entity.FetchLog, error) {
	const query = `
SELECT id, feed_id, started_at, completed_at, outcome, items_found, items_new, error_message, response_time_ms
FROM fetch_log WHERE feed_id = $1 ORDER BY started_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListByFeed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.FetchLog
	for rows.Next() {
		var l entity.FetchLog
		if err := rows.Scan(&l.ID, &l.FeedID, &l.StartedAt, &l.CompletedAt, &l.Outcome,
			&l.ItemsFound, &l.ItemsNew, &l.ErrorMessage, &l.ResponseTimeMs); err != nil {
			return nil, fmt.Errorf("ListByFeed: Scan: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// FeedHealthRepo is the Postgres-backed repository.FeedHealthRepository.
type FeedHealthRepo struct{ db *sql.DB }

func NewFeedHealthRepo(db *sql.DB) repository.FeedHealthRepository {
	return &FeedHealthRepo{db: db}
}

func (r *FeedHealthRepo) Get(ctx context.Context, feedID int64) (*entity.FeedHealth, error) {
	const query = `
SELECT feed_id, success_rate_7d, success_rate_30d, avg_response_time_ms, uptime_7d, uptime_30d,
       consecutive_failures, last_success_at, last_failure_at, updated_at
FROM feed_health WHERE feed_id = $1`
	var h entity.FeedHealth
	var lastSuccess, lastFailure sql.NullTime
	err := r.db.QueryRowContext(ctx, query, feedID).Scan(&h.FeedID, &h.SuccessRate7d, &h.SuccessRate30d,
		&h.AvgResponseTimeMs, &h.Uptime7d, &h.Uptime30d, &h.ConsecutiveFailures, &lastSuccess, &lastFailure, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if lastSuccess.Valid {
		h.LastSuccessAt = &lastSuccess.Time
	}
	if lastFailure.Valid {
		h.LastFailureAt = &lastFailure.Time
	}
	return &h, nil
}

func (r *FeedHealthRepo) Upsert(ctx context.Context, h *entity.FeedHealth) error {
	const query = `
INSERT INTO feed_health (feed_id, success_rate_7d, success_rate_30d, avg_response_time_ms,
	uptime_7d, uptime_30d, consecutive_failures, last_success_at, last_failure_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
ON CONFLICT (feed_id) DO UPDATE SET
	success_rate_7d = EXCLUDED.success_rate_7d,
	success_rate_30d = EXCLUDED.success_rate_30d,
	avg_response_time_ms = EXCLUDED.avg_response_time_ms,
	uptime_7d = EXCLUDED.uptime_7d,
	uptime_30d = EXCLUDED.uptime_30d,
	consecutive_failures = EXCLUDED.consecutive_failures,
	last_success_at = EXCLUDED.last_success_at,
	last_failure_at = EXCLUDED.last_failure_at,
	updated_at = now()`
	_, err := r.db.ExecContext(ctx, query, h.FeedID, h.SuccessRate7d, h.SuccessRate30d, h.AvgResponseTimeMs,
		h.Uptime7d, h.Uptime30d, h.ConsecutiveFailures, h.LastSuccessAt, h.LastFailureAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}
