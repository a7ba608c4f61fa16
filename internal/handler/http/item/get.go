package item

import (
	"net/http"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/pathutil"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

type GetHandler struct{ Items repository.ItemRepository }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/items/")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}
	it, err := h.Items.Get(r.Context(), id)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(it))
}
