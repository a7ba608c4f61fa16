package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

// ItemAnalysisRepo is the Postgres-backed repository.ItemAnalysisRepository.
type ItemAnalysisRepo struct{ db *sql.DB }

func NewItemAnalysisRepo(db *sql.DB) repository.ItemAnalysisRepository {
	return &ItemAnalysisRepo{db: db}
}

func (r *ItemAnalysisRepo) Upsert(ctx context.Context, a *entity.ItemAnalysis) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	const query = `
INSERT INTO item_analyses (item_id, payload, model_tag, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (item_id) DO UPDATE SET payload = EXCLUDED.payload, model_tag = EXCLUDED.model_tag, updated_at = now()`
	_, err = r.db.ExecContext(ctx, query, a.ItemID, payload, a.Payload.ModelTag)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *ItemAnalysisRepo) Get(ctx context.Context, itemID int64) (*entity.ItemAnalysis, error) {
	const query = `SELECT item_id, payload, updated_at FROM item_analyses WHERE item_id = $1`
	var a entity.ItemAnalysis
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&a.ItemID, &payload, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if err := json.Unmarshal(payload, &a.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &a, nil
}

func (r *ItemAnalysisRepo) Exists(ctx context.Context, itemID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM item_analyses WHERE item_id = $1)`, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return exists, nil
}

func (r *ItemAnalysisRepo) ExistsBatch(ctx context.Context, itemIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT item_id FROM item_analyses WHERE item_id = ANY($1)`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("ExistsBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ExistsBatch: Scan: %w", err)
		}
		result[id] = true
	}
	return result, rows.Err()
}

func (r *ItemAnalysisRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_analyses`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}
