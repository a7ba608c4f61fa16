package db

import (
	"database/sql"
)

// MigrateUp creates the full ingestion-plus-analysis schema. Tables are
// created with IF NOT EXISTS so repeated boots of the same database are
// idempotent, matching the teacher's own migration style.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS feeds (
		    id                    BIGSERIAL PRIMARY KEY,
		    source_url            TEXT NOT NULL UNIQUE,
		    title                 TEXT NOT NULL DEFAULT '',
		    status                TEXT NOT NULL DEFAULT 'ACTIVE',
		    base_interval_minutes INT NOT NULL DEFAULT 30,
		    auto_analyze          BOOLEAN NOT NULL DEFAULT FALSE,
		    template_id           BIGINT,
		    next_fetch_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		    consecutive_failures  INT NOT NULL DEFAULT 0,
		    last_fetched_at       TIMESTAMPTZ,
		    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		    updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feeds_status_next_fetch ON feeds(status, next_fetch_at)`,

		`CREATE TABLE IF NOT EXISTS templates (
		    id           BIGSERIAL PRIMARY KEY,
		    name         TEXT NOT NULL,
		    is_universal BOOLEAN NOT NULL DEFAULT FALSE,
		    match_rules  JSONB NOT NULL DEFAULT '[]',
		    selectors    JSONB NOT NULL DEFAULT '{}',
		    processing   JSONB NOT NULL DEFAULT '{}'
		)`,

		`CREATE TABLE IF NOT EXISTS items (
		    id           BIGSERIAL PRIMARY KEY,
		    feed_id      BIGINT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
		    title        TEXT NOT NULL,
		    link         TEXT NOT NULL,
		    content      TEXT NOT NULL DEFAULT '',
		    author       TEXT NOT NULL DEFAULT '',
		    published_at TIMESTAMPTZ,
		    ingested_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		    content_hash TEXT NOT NULL UNIQUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_feed_published ON items(feed_id, published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_items_published ON items(published_at DESC)`,

		`CREATE TABLE IF NOT EXISTS analysis_runs (
		    id               BIGSERIAL PRIMARY KEY,
		    scope            JSONB NOT NULL,
		    params           JSONB NOT NULL,
		    status           TEXT NOT NULL DEFAULT 'PENDING',
		    queued           INT NOT NULL DEFAULT 0,
		    processing       INT NOT NULL DEFAULT 0,
		    completed        INT NOT NULL DEFAULT 0,
		    failed           INT NOT NULL DEFAULT 0,
		    skipped          INT NOT NULL DEFAULT 0,
		    total_items      INT NOT NULL DEFAULT 0,
		    estimated_cost   DOUBLE PRECISION NOT NULL DEFAULT 0,
		    actual_cost      DOUBLE PRECISION NOT NULL DEFAULT 0,
		    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		    started_at       TIMESTAMPTZ,
		    completed_at     TIMESTAMPTZ,
		    trigger          TEXT NOT NULL DEFAULT 'manual',
		    model_tag        TEXT NOT NULL DEFAULT '',
		    cancel_requested BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status_created ON analysis_runs(status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_trigger_created ON analysis_runs(trigger, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS run_items (
		    id           BIGSERIAL PRIMARY KEY,
		    run_id       BIGINT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
		    item_id      BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		    state        TEXT NOT NULL DEFAULT 'QUEUED',
		    started_at   TIMESTAMPTZ,
		    completed_at TIMESTAMPTZ,
		    error        TEXT NOT NULL DEFAULT '',
		    tokens       INT NOT NULL DEFAULT 0,
		    cost         DOUBLE PRECISION NOT NULL DEFAULT 0,
		    UNIQUE (run_id, item_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_items_run_state ON run_items(run_id, state)`,

		`CREATE TABLE IF NOT EXISTS item_analyses (
		    item_id    BIGINT PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
		    payload    JSONB NOT NULL,
		    model_tag  TEXT NOT NULL,
		    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_analyses_payload_gin ON item_analyses USING gin(payload jsonb_path_ops)`,

		`CREATE TABLE IF NOT EXISTS fetch_log (
		    id               BIGSERIAL PRIMARY KEY,
		    feed_id          BIGINT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
		    started_at       TIMESTAMPTZ NOT NULL,
		    completed_at     TIMESTAMPTZ NOT NULL,
		    outcome          TEXT NOT NULL,
		    items_found      INT NOT NULL DEFAULT 0,
		    items_new        INT NOT NULL DEFAULT 0,
		    error_message    TEXT NOT NULL DEFAULT '',
		    response_time_ms BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_log_feed ON fetch_log(feed_id, started_at DESC)`,

		`CREATE TABLE IF NOT EXISTS feed_health (
		    feed_id              BIGINT PRIMARY KEY REFERENCES feeds(id) ON DELETE CASCADE,
		    success_rate_7d      DOUBLE PRECISION NOT NULL DEFAULT 0,
		    success_rate_30d     DOUBLE PRECISION NOT NULL DEFAULT 0,
		    avg_response_time_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
		    uptime_7d            DOUBLE PRECISION NOT NULL DEFAULT 0,
		    uptime_30d           DOUBLE PRECISION NOT NULL DEFAULT 0,
		    consecutive_failures INT NOT NULL DEFAULT 0,
		    last_success_at      TIMESTAMPTZ,
		    last_failure_at      TIMESTAMPTZ,
		    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS pending_auto_analyses (
		    id           BIGSERIAL PRIMARY KEY,
		    feed_id      BIGINT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
		    item_ids     BIGINT[] NOT NULL,
		    status       TEXT NOT NULL DEFAULT 'PENDING',
		    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		    processed_at TIMESTAMPTZ,
		    run_id       BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_auto_feed_status ON pending_auto_analyses(feed_id, status)`,

		`CREATE TABLE IF NOT EXISTS queued_runs (
		    id          BIGSERIAL PRIMARY KEY,
		    scope       JSONB NOT NULL,
		    params      JSONB NOT NULL,
		    trigger     TEXT NOT NULL,
		    enqueued_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		    held        BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS feed_limits (
		    feed_id                BIGINT PRIMARY KEY REFERENCES feeds(id) ON DELETE CASCADE,
		    daily_analyses         INT,
		    daily_cost_usd         DOUBLE PRECISION,
		    monthly_cost_usd       DOUBLE PRECISION,
		    alert_threshold_usd    DOUBLE PRECISION,
		    auto_disable_on_breach BOOLEAN NOT NULL DEFAULT FALSE,
		    emergency_stop         BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// pg_trgm speeds up ILIKE-style filters the HTTP surface exposes over
	// item titles; ignore failure (extension may be unavailable without
	// superuser, matching the teacher's own best-effort extension setup).
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_items_title_gin ON items USING gin(title gin_trgm_ops)`)

	if _, err := db.Exec(`
INSERT INTO templates (name, is_universal, match_rules, selectors, processing)
SELECT 'universal', TRUE, '[]', '{}', '{"strip_html":true,"normalize_whitespace":true}'
WHERE NOT EXISTS (SELECT 1 FROM templates WHERE is_universal)
`); err != nil {
		return err
	}

	return nil
}

// MigrateDown drops every table owned by this schema, in dependency order.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS run_items CASCADE`,
		`DROP TABLE IF EXISTS item_analyses CASCADE`,
		`DROP TABLE IF EXISTS analysis_runs CASCADE`,
		`DROP TABLE IF EXISTS queued_runs CASCADE`,
		`DROP TABLE IF EXISTS pending_auto_analyses CASCADE`,
		`DROP TABLE IF EXISTS feed_limits CASCADE`,
		`DROP TABLE IF EXISTS feed_health CASCADE`,
		`DROP TABLE IF EXISTS fetch_log CASCADE`,
		`DROP TABLE IF EXISTS items CASCADE`,
		`DROP TABLE IF EXISTS templates CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
