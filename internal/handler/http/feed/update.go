package feed

import (
	"encoding/json"
	"net/http"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/pathutil"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

type UpdateHandler struct{ Feeds repository.FeedRepository }

type updateRequest struct {
	Title               *string `json:"title"`
	BaseIntervalMinutes *int    `json:"base_interval_minutes"`
	AutoAnalyze         *bool   `json:"auto_analyze"`
	TemplateID          *int64  `json:"template_id"`
	Status              *string `json:"status"`
}

func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/feeds/")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "malformed request body", nil)
		return
	}

	f, err := h.Feeds.Get(r.Context(), id)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if req.Title != nil {
		f.Title = *req.Title
	}
	if req.BaseIntervalMinutes != nil {
		f.BaseIntervalMinutes = *req.BaseIntervalMinutes
	}
	if req.AutoAnalyze != nil {
		f.AutoAnalyze = *req.AutoAnalyze
	}
	if req.TemplateID != nil {
		f.TemplateID = req.TemplateID
	}
	if req.Status != nil {
		f.Status = entity.FeedStatus(*req.Status)
	}
	f.UpdatedAt = time.Now().UTC()

	if err := f.Validate(); err != nil {
		apierr.Write(w, err)
		return
	}
	if err := h.Feeds.Update(r.Context(), f); err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(f))
}
