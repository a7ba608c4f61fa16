package analysis

import (
	"encoding/json"
	"net/http"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/respond"
	analysisuc "feedctl/internal/usecase/analysis"
)

// PreviewHandler serves POST /analysis/preview: a read-only dry run that
// reports scope size and estimated cost before anything is queued.
type PreviewHandler struct{ Analysis *analysisuc.Service }

func (h PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req scopeAndParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "invalid request body", nil)
		return
	}
	scope, err := req.Scope.toEntity()
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}

	preview, err := h.Analysis.Preview(r.Context(), scope, req.Params.toEntity())
	if err != nil {
		apierr.Write(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, previewResponse{
		TotalItems:               preview.TotalItems,
		AlreadyAnalyzed:          preview.AlreadyAnalyzed,
		ToAnalyze:                preview.ToAnalyze,
		EstimatedCostUSD:         preview.EstimatedCostUSD,
		EstimatedDurationMinutes: preview.EstimatedDurationMinutes,
		SampleItemIDs:            preview.SampleItemIDs,
		HasConflicts:             preview.ToAnalyze < preview.TotalItems && !req.Params.OverrideExisting,
	})
}
