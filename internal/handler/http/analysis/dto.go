// Package analysis provides the HTTP surface for previewing, starting,
// inspecting, and cancelling analysis runs, plus the governor's
// emergency-stop/resume manager endpoints.
package analysis

import (
	"fmt"
	"time"

	"feedctl/internal/domain/entity"
)

// scopeRequest is the wire shape of entity.Scope; From/To are RFC3339
// strings since entity.Scope uses time.Time internally.
type scopeRequest struct {
	Kind    string  `json:"kind"`
	Latest  int     `json:"latest"`
	FeedIDs []int64 `json:"feed_ids"`
	ItemIDs []int64 `json:"item_ids"`
	From    string  `json:"from"`
	To      string  `json:"to"`
}

func (s scopeRequest) toEntity() (entity.Scope, error) {
	scope := entity.Scope{
		Kind:    entity.ScopeKind(s.Kind),
		Latest:  s.Latest,
		FeedIDs: s.FeedIDs,
		ItemIDs: s.ItemIDs,
	}
	if s.From != "" {
		from, err := time.Parse(time.RFC3339, s.From)
		if err != nil {
			return entity.Scope{}, fmt.Errorf("scope.from must be RFC3339: %w", err)
		}
		scope.From = from
	}
	if s.To != "" {
		to, err := time.Parse(time.RFC3339, s.To)
		if err != nil {
			return entity.Scope{}, fmt.Errorf("scope.to must be RFC3339: %w", err)
		}
		scope.To = to
	}
	return scope, nil
}

type paramsRequest struct {
	ModelTag         string  `json:"model_tag"`
	RateCapPerSecond float64 `json:"rate_cap_per_second"`
	ItemLimit        int     `json:"item_limit"`
	OverrideExisting bool    `json:"override_existing"`
}

func (p paramsRequest) toEntity() entity.RunParams {
	return entity.RunParams{
		ModelTag:         p.ModelTag,
		RateCapPerSecond: p.RateCapPerSecond,
		ItemLimit:        p.ItemLimit,
		OverrideExisting: p.OverrideExisting,
	}
}

type scopeAndParamsRequest struct {
	Scope  scopeRequest  `json:"scope"`
	Params paramsRequest `json:"params"`
}

// previewResponse mirrors spec §6.1's POST /analysis/preview body.
type previewResponse struct {
	TotalItems               int     `json:"total_items"`
	AlreadyAnalyzed          int     `json:"already_analyzed"`
	ToAnalyze                int     `json:"to_analyze"`
	EstimatedCostUSD         float64 `json:"estimated_cost_usd"`
	EstimatedDurationMinutes float64 `json:"estimated_duration_minutes"`
	SampleItemIDs            []int64 `json:"sample_item_ids"`
	HasConflicts             bool    `json:"has_conflicts"`
}

// runDTO is the full run snapshot returned by GET /analysis/runs/{id}.
type runDTO struct {
	ID             int64             `json:"id"`
	Scope          entity.Scope      `json:"scope"`
	Params         entity.RunParams  `json:"params"`
	Status         string            `json:"status"`
	Counters       entity.RunCounters `json:"counters"`
	EstimatedCost  float64           `json:"estimated_cost_usd"`
	ActualCost     float64           `json:"actual_cost_usd"`
	CreatedAt      time.Time         `json:"created_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Trigger        string            `json:"trigger"`
	ModelTag       string            `json:"model_tag"`
	CancelRequested bool             `json:"cancel_requested"`
}

func toRunDTO(r *entity.AnalysisRun) runDTO {
	return runDTO{
		ID:              r.ID,
		Scope:           r.Scope,
		Params:          r.Params,
		Status:          string(r.Status),
		Counters:        r.Counters,
		EstimatedCost:   r.EstimatedCost,
		ActualCost:      r.ActualCost,
		CreatedAt:       r.CreatedAt,
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		Trigger:         string(r.Trigger),
		ModelTag:        r.ModelTag,
		CancelRequested: r.CancelRequested,
	}
}

// startResponse mirrors spec §6.1's POST /analysis/start body.
type startResponse struct {
	ID            int64  `json:"id"`
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position,omitempty"`
}
