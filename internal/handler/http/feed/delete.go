package feed

import (
	"net/http"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/pathutil"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

type DeleteHandler struct{ Feeds repository.FeedRepository }

func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/feeds/")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}
	if err := h.Feeds.Delete(r.Context(), id); err != nil {
		apierr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
