package analysis

import (
	"net/http"
	"strings"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/pathutil"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/usecase/governor"
)

// CancelHandler serves POST /analysis/runs/{id}/cancel. Cancellation is
// cooperative: it sets a bit the orchestrator's worker loop observes
// between items, so the response does not imply the run has stopped yet.
type CancelHandler struct{ Governor *governor.Service }

func (h CancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/cancel")
	id, err := pathutil.ExtractID(path, "/analysis/runs/")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}
	if err := h.Governor.Cancel(r.Context(), id); err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]string{"status": "cancel_requested"})
}
