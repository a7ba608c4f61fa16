package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

// TemplateRepo is the Postgres-backed repository.TemplateRepository.
// Match rules, selectors, and processing rules are stored as JSONB.
type TemplateRepo struct{ db *sql.DB }

func NewTemplateRepo(db *sql.DB) repository.TemplateRepository {
	return &TemplateRepo{db: db}
}

func scanTemplate(row interface{ Scan(...any) error }) (*entity.Template, error) {
	var t entity.Template
	var matchRules, selectors, processing []byte
	if err := row.Scan(&t.ID, &t.Name, &t.IsUniversal, &matchRules, &selectors, &processing); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(matchRules, &t.MatchRules); err != nil {
		return nil, fmt.Errorf("unmarshal match_rules: %w", err)
	}
	if err := json.Unmarshal(selectors, &t.Selectors); err != nil {
		return nil, fmt.Errorf("unmarshal selectors: %w", err)
	}
	if err := json.Unmarshal(processing, &t.Processing); err != nil {
		return nil, fmt.Errorf("unmarshal processing: %w", err)
	}
	return &t, nil
}

func (r *TemplateRepo) Create(ctx context.Context, tmpl *entity.Template) error {
	matchRules, _ := json.Marshal(tmpl.MatchRules)
	selectors, _ := json.Marshal(tmpl.Selectors)
	processing, _ := json.Marshal(tmpl.Processing)
	const query = `
INSERT INTO templates (name, is_universal, match_rules, selectors, processing)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	return r.db.QueryRowContext(ctx, query, tmpl.Name, tmpl.IsUniversal, matchRules, selectors, processing).Scan(&tmpl.ID)
}

func (r *TemplateRepo) Get(ctx context.Context, id int64) (*entity.Template, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, is_universal, match_rules, selectors, processing FROM templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) List(ctx context.Context) ([]*entity.Template, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, is_universal, match_rules, selectors, processing FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepo) ListCandidates(ctx context.Context) ([]*entity.Template, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, is_universal, match_rules, selectors, processing FROM templates WHERE is_universal = FALSE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListCandidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCandidates: Scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepo) GetUniversal(ctx context.Context) (*entity.Template, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, is_universal, match_rules, selectors, processing FROM templates WHERE is_universal = TRUE LIMIT 1`)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUniversal: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) Update(ctx context.Context, tmpl *entity.Template) error {
	matchRules, _ := json.Marshal(tmpl.MatchRules)
	selectors, _ := json.Marshal(tmpl.Selectors)
	processing, _ := json.Marshal(tmpl.Processing)
	const query = `
UPDATE templates SET name = $1, match_rules = $2, selectors = $3, processing = $4
WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, tmpl.Name, matchRules, selectors, processing, tmpl.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
