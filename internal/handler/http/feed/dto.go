// Package feed provides HTTP handlers for feed registration and the
// scheduler's per-feed lifecycle (pause/resume/interval are exposed
// separately under /scheduler, since they operate on any feed or all of
// them at once).
package feed

import (
	"time"

	"feedctl/internal/domain/entity"
)

// DTO is the JSON shape for a Feed.
type DTO struct {
	ID                  int64      `json:"id"`
	SourceURL           string     `json:"source_url"`
	Title               string     `json:"title"`
	Status              string     `json:"status"`
	BaseIntervalMinutes int        `json:"base_interval_minutes"`
	AutoAnalyze         bool       `json:"auto_analyze"`
	TemplateID          *int64     `json:"template_id,omitempty"`
	NextFetchAt         time.Time  `json:"next_fetch_at"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFetchedAt       *time.Time `json:"last_fetched_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toDTO(f *entity.Feed) DTO {
	return DTO{
		ID:                  f.ID,
		SourceURL:           f.SourceURL,
		Title:               f.Title,
		Status:              string(f.Status),
		BaseIntervalMinutes: f.BaseIntervalMinutes,
		AutoAnalyze:         f.AutoAnalyze,
		TemplateID:          f.TemplateID,
		NextFetchAt:         f.NextFetchAt,
		ConsecutiveFailures: f.ConsecutiveFailures,
		LastFetchedAt:       f.LastFetchedAt,
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
	}
}
