package feed

import (
	"net/http"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/pathutil"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

type GetHandler struct{ Feeds repository.FeedRepository }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/feeds/")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}
	f, err := h.Feeds.Get(r.Context(), id)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(f))
}
