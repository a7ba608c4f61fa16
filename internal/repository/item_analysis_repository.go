package repository

import (
	"context"

	"feedctl/internal/domain/entity"
)

// ItemAnalysisRepository persists the canonical analysis payload, keyed by
// item id.
type ItemAnalysisRepository interface {
	// Upsert writes the analysis, overwriting any existing row. Callers
	// enforce override_existing semantics before calling this; the store
	// itself always writes last-writer-wins.
	Upsert(ctx context.Context, analysis *entity.ItemAnalysis) error
	Get(ctx context.Context, itemID int64) (*entity.ItemAnalysis, error)
	Exists(ctx context.Context, itemID int64) (bool, error)
	ExistsBatch(ctx context.Context, itemIDs []int64) (map[int64]bool, error)
	// Count returns the total number of analyzed items, for the
	// analyzed-ratio gauge.
	Count(ctx context.Context) (int64, error)
}
