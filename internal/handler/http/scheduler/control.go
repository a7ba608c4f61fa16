package scheduler

import (
	"encoding/json"
	"net/http"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/usecase/scheduler"
)

// feedScopeRequest optionally scopes a control action to one feed; a nil
// FeedID applies the action globally.
type feedScopeRequest struct {
	FeedID *int64 `json:"feed_id"`
}

// PauseHandler serves POST /scheduler/pause.
type PauseHandler struct{ Scheduler *scheduler.Service }

func (h PauseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req feedScopeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "invalid request body", nil)
			return
		}
	}
	if err := h.Scheduler.Pause(r.Context(), req.FeedID); err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// ResumeHandler serves POST /scheduler/resume.
type ResumeHandler struct{ Scheduler *scheduler.Service }

func (h ResumeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req feedScopeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "invalid request body", nil)
			return
		}
	}
	if err := h.Scheduler.Resume(r.Context(), req.FeedID); err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

// intervalRequest carries the new fetch interval in minutes.
type intervalRequest struct {
	FeedID  *int64 `json:"feed_id"`
	Minutes int    `json:"minutes"`
}

// IntervalHandler serves POST /scheduler/interval.
type IntervalHandler struct{ Scheduler *scheduler.Service }

func (h IntervalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "invalid request body", nil)
		return
	}
	if err := h.Scheduler.SetInterval(r.Context(), req.FeedID, req.Minutes); err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
