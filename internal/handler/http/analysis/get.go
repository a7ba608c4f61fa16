package analysis

import (
	"net/http"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/pathutil"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

// GetHandler serves GET /analysis/runs/{id}.
type GetHandler struct{ Runs repository.AnalysisRunRepository }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/analysis/runs/")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}
	run, err := h.Runs.Get(r.Context(), id)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toRunDTO(run))
}
