package analysis

import (
	"context"
	"fmt"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

// resolveScope turns a run's scope into the ordered list of item ids it
// touches, independent of override_existing filtering. For ScopeTimeRange
// the limit is ignored; for every other kind it caps the list.
func (s *Service) resolveScope(ctx context.Context, scope entity.Scope, limit int) ([]int64, error) {
	switch scope.Kind {
	case entity.ScopeLatest:
		n := scope.Latest
		if limit > 0 && limit < n {
			n = limit
		}
		items, err := s.Items.ListLatest(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("analysis: resolve scope LATEST: %w", err)
		}
		return itemIDs(items), nil

	case entity.ScopeFeeds:
		items, err := s.Items.ListByFeeds(ctx, scope.FeedIDs, limit)
		if err != nil {
			return nil, fmt.Errorf("analysis: resolve scope FEEDS: %w", err)
		}
		return itemIDs(items), nil

	case entity.ScopeItems:
		ids := scope.ItemIDs
		if limit > 0 && limit < len(ids) {
			ids = ids[:limit]
		}
		found, err := s.Items.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("analysis: resolve scope ITEMS: %w", err)
		}
		present := make(map[int64]bool, len(found))
		for _, it := range found {
			present[it.ID] = true
		}
		ordered := make([]int64, 0, len(ids))
		for _, id := range ids {
			if present[id] {
				ordered = append(ordered, id)
			}
		}
		return ordered, nil

	case entity.ScopeTimeRange:
		items, err := s.Items.ListByTimeRange(ctx, scope.From, scope.To)
		if err != nil {
			return nil, fmt.Errorf("analysis: resolve scope TIMERANGE: %w", err)
		}
		return itemIDs(items), nil

	default:
		return nil, fmt.Errorf("analysis: unknown scope kind %q", scope.Kind)
	}
}

func itemIDs(items []*entity.Item) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// partitionByAnalyzed splits ids into (toAnalyze, alreadyAnalyzedCount)
// using a single batch existence check against the analysis store.
func partitionByAnalyzed(ctx context.Context, analyses repository.ItemAnalysisRepository, ids []int64, overrideExisting bool) ([]int64, int, error) {
	if len(ids) == 0 {
		return nil, 0, nil
	}
	exists, err := analyses.ExistsBatch(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("analysis: check existing analyses: %w", err)
	}
	already := 0
	for _, id := range ids {
		if exists[id] {
			already++
		}
	}
	if overrideExisting {
		return ids, already, nil
	}
	toAnalyze := make([]int64, 0, len(ids)-already)
	for _, id := range ids {
		if !exists[id] {
			toAnalyze = append(toAnalyze, id)
		}
	}
	return toAnalyze, already, nil
}
