package feed

import (
	"net/http"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

type ListHandler struct{ Feeds repository.FeedRepository }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.Feeds.List(r.Context())
	if err != nil {
		apierr.Write(w, err)
		return
	}
	out := make([]DTO, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, toDTO(f))
	}
	respond.JSON(w, http.StatusOK, out)
}
