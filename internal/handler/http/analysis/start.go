package analysis

import (
	"encoding/json"
	"net/http"

	"feedctl/internal/domain/entity"
	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/usecase/governor"
)

// StartHandler serves POST /analysis/start, admitting a run through the
// governor: running immediately if budget allows, queued otherwise.
type StartHandler struct{ Governor *governor.Service }

func (h StartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.Governor.RequestRun(r.Context(), scope, req.Params.toEntity(), entity.TriggerAPI)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	respond.JSON(w, http.StatusAccepted, startResponse{
		ID:            result.RunID,
		Status:        string(result.Status),
		QueuePosition: result.QueuePosition,
	})
}
