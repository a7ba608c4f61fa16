// Package postgres implements the repository interfaces in
// feedctl/internal/repository against PostgreSQL via database/sql and the
// pgx/v5 stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

// FeedRepo is the Postgres-backed repository.FeedRepository.
type FeedRepo struct{ db *sql.DB }

// NewFeedRepo constructs a FeedRepo bound to db.
func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

const feedColumns = `id, source_url, title, status, base_interval_minutes, auto_analyze,
	template_id, next_fetch_at, consecutive_failures, last_fetched_at, created_at, updated_at`

func scanFeed(row interface{ Scan(...any) error }) (*entity.Feed, error) {
	var f entity.Feed
	var templateID sql.NullInt64
	var lastFetched sql.NullTime
	if err := row.Scan(&f.ID, &f.SourceURL, &f.Title, &f.Status, &f.BaseIntervalMinutes, &f.AutoAnalyze,
		&templateID, &f.NextFetchAt, &f.ConsecutiveFailures, &lastFetched, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if templateID.Valid {
		id := templateID.Int64
		f.TemplateID = &id
	}
	if lastFetched.Valid {
		t := lastFetched.Time
		f.LastFetchedAt = &t
	}
	return &f, nil
}

func (r *FeedRepo) Create(ctx context.Context, feed *entity.Feed) error {
	const query = `
INSERT INTO feeds (source_url, title, status, base_interval_minutes, auto_analyze, template_id, next_fetch_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query,
		feed.SourceURL, feed.Title, feed.Status, feed.BaseIntervalMinutes, feed.AutoAnalyze,
		feed.TemplateID, feed.NextFetchAt,
	).Scan(&feed.ID, &feed.CreatedAt, &feed.UpdatedAt)
}

func (r *FeedRepo) Get(ctx context.Context, id int64) (*entity.Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id)
	f, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return f, nil
}

func (r *FeedRepo) GetByURL(ctx context.Context, url string) (*entity.Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE source_url = $1`, url)
	f, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	return f, nil
}

func (r *FeedRepo) List(ctx context.Context) ([]*entity.Feed, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var feeds []*entity.Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func (r *FeedRepo) Update(ctx context.Context, feed *entity.Feed) error {
	const query = `
UPDATE feeds SET
	title = $1, status = $2, base_interval_minutes = $3, auto_analyze = $4,
	template_id = $5, updated_at = now()
WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, feed.Title, feed.Status, feed.BaseIntervalMinutes,
		feed.AutoAnalyze, feed.TemplateID, feed.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *FeedRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *FeedRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.Feed, error) {
	const query = `
SELECT ` + feedColumns + ` FROM feeds
WHERE status = 'ACTIVE' AND next_fetch_at <= $1
ORDER BY next_fetch_at ASC
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("ListDue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var feeds []*entity.Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDue: Scan: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func (r *FeedRepo) RecordFetchOutcome(ctx context.Context, feedID int64, nextFetchAt time.Time, consecutiveFailures int, status entity.FeedStatus, fetchedAt time.Time) error {
	const query = `
UPDATE feeds SET
	next_fetch_at = $1, consecutive_failures = $2, status = $3, last_fetched_at = $4, updated_at = now()
WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, nextFetchAt, consecutiveFailures, status, fetchedAt, feedID)
	if err != nil {
		return fmt.Errorf("RecordFetchOutcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *FeedRepo) SetStatus(ctx context.Context, feedID int64, status entity.FeedStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE feeds SET status = $1, updated_at = now() WHERE id = $2`, status, feedID)
	if err != nil {
		return fmt.Errorf("SetStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *FeedRepo) SetStatusAll(ctx context.Context, status entity.FeedStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE feeds SET status = $1, updated_at = now()`, status)
	if err != nil {
		return fmt.Errorf("SetStatusAll: %w", err)
	}
	return nil
}

func (r *FeedRepo) SetInterval(ctx context.Context, feedID int64, minutes int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE feeds SET base_interval_minutes = $1, updated_at = now() WHERE id = $2`, minutes, feedID)
	if err != nil {
		return fmt.Errorf("SetInterval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *FeedRepo) SetIntervalAll(ctx context.Context, minutes int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE feeds SET base_interval_minutes = $1, updated_at = now()`, minutes)
	if err != nil {
		return fmt.Errorf("SetIntervalAll: %w", err)
	}
	return nil
}
