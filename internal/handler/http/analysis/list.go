package analysis

import (
	"net/http"
	"strconv"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

// ListHandler serves GET /analysis/runs?active_only=bool&limit=n.
type ListHandler struct{ Runs repository.AnalysisRunRepository }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	activeOnly := false
	if v := q.Get("active_only"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "active_only must be a bool", nil)
			return
		}
		activeOnly = parsed
	}

	limit := 50
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	runs, err := h.Runs.List(r.Context(), activeOnly, limit)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	dtos := make([]runDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	respond.JSON(w, http.StatusOK, dtos)
}
