package analysis

import (
	"context"
	"fmt"

	"feedctl/internal/domain/entity"
	"feedctl/internal/usecase/classify"
)

// Preview is the deterministic pre-computation of counts and cost for a
// given scope and params, with no side effects.
type Preview struct {
	TotalItems               int
	AlreadyAnalyzed          int
	ToAnalyze                int
	EstimatedCostUSD         float64
	EstimatedDurationMinutes float64
	SampleItemIDs            []int64
}

const previewSampleSize = 10

// Preview computes a Preview for the given scope+params without touching
// the store beyond read-only lookups.
func (s *Service) Preview(ctx context.Context, scope entity.Scope, params entity.RunParams) (Preview, error) {
	limit := params.ItemLimit
	if scope.Kind == entity.ScopeTimeRange {
		limit = 0
	}

	ids, err := s.resolveScope(ctx, scope, limit)
	if err != nil {
		return Preview{}, err
	}

	toAnalyze, already, err := partitionByAnalyzed(ctx, s.Analyses, ids, params.OverrideExisting)
	if err != nil {
		return Preview{}, err
	}

	rate := params.RateCapPerSecond
	if rate <= 0 {
		rate = s.Config.DefaultRatePerSecond
	}

	sample := toAnalyze
	if len(sample) > previewSampleSize {
		sample = sample[:previewSampleSize]
	}

	modelTag := params.ModelTag
	if modelTag == "" {
		return Preview{}, fmt.Errorf("analysis: preview: model tag is required")
	}

	return Preview{
		TotalItems:               len(ids),
		AlreadyAnalyzed:          already,
		ToAnalyze:                len(toAnalyze),
		EstimatedCostUSD:         classify.EstimateCostUSD(modelTag, s.Config.AvgTokensPerItem, len(toAnalyze)),
		EstimatedDurationMinutes: float64(len(toAnalyze)) / rate / 60,
		SampleItemIDs:            append([]int64{}, sample...),
	}, nil
}
