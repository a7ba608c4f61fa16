package feed

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"feedctl/internal/domain/entity"
	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/pathutil"
	"feedctl/internal/handler/http/respond"
)

// Scheduler triggers an immediate, out-of-band fetch of a single feed,
// bypassing the scheduler's own NextFetchAt cadence.
type Scheduler interface {
	FetchNow(ctx context.Context, feedID int64) error
}

type FetchHandler struct{ Scheduler Scheduler }

func (h FetchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/fetch")
	id, err := pathutil.ExtractID(path, "/feeds/")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}
	if err := h.Scheduler.FetchNow(r.Context(), id); err != nil {
		if errors.Is(err, entity.ErrConflict) {
			respond.Fail(w, http.StatusConflict, respond.KindConflict, "feed already has a fetch in flight", nil)
			return
		}
		apierr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
