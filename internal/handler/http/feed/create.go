package feed

import (
	"encoding/json"
	"net/http"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

type CreateHandler struct{ Feeds repository.FeedRepository }

type createRequest struct {
	SourceURL           string `json:"source_url"`
	Title               string `json:"title"`
	BaseIntervalMinutes int    `json:"base_interval_minutes"`
	AutoAnalyze         bool   `json:"auto_analyze"`
	TemplateID          *int64 `json:"template_id"`
}

func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "malformed request body", nil)
		return
	}
	if req.BaseIntervalMinutes == 0 {
		req.BaseIntervalMinutes = 60
	}

	now := time.Now().UTC()
	f := &entity.Feed{
		SourceURL:           req.SourceURL,
		Title:               req.Title,
		Status:              entity.FeedStatusActive,
		BaseIntervalMinutes: req.BaseIntervalMinutes,
		AutoAnalyze:         req.AutoAnalyze,
		TemplateID:          req.TemplateID,
		NextFetchAt:         now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := f.Validate(); err != nil {
		apierr.Write(w, err)
		return
	}
	if err := h.Feeds.Create(r.Context(), f); err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toDTO(f))
}
