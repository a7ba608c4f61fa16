// Package scheduler provides the HTTP surface for fetch-scheduler
// liveness and control: heartbeat, pause/resume, and interval overrides.
package scheduler

import (
	"net/http"
	"strconv"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/usecase/scheduler"
)

// HeartbeatHandler serves GET /scheduler/heartbeat.
type HeartbeatHandler struct{ Scheduler *scheduler.Service }

func (h HeartbeatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topN := 10
	if v := r.URL.Query().Get("top"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "top must be a positive integer", nil)
			return
		}
		topN = parsed
	}
	hb, err := h.Scheduler.Heartbeat(r.Context(), topN)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, hb)
}
