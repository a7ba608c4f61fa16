package item

import (
	"net/http"
	"strings"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/pathutil"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

// AnalysisHandler serves GET /items/{id}/analysis, the canonical payload
// stored per item (spec §6.2).
type AnalysisHandler struct{ Analyses repository.ItemAnalysisRepository }

func (h AnalysisHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/analysis")
	id, err := pathutil.ExtractID(path, "/items/")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}
	analysis, err := h.Analyses.Get(r.Context(), id)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, analysis.Payload)
}
