package item

import (
	"net/http"

	"feedctl/internal/repository"
)

// Register wires the read-only item browsing surface onto mux.
func Register(mux *http.ServeMux, items repository.ItemRepository, analyses repository.ItemAnalysisRepository) {
	mux.Handle("GET    /items", ListHandler{Items: items})
	mux.Handle("GET    /items/{id}/analysis", AnalysisHandler{Analyses: analyses})
	mux.Handle("GET    /items/{id}", GetHandler{Items: items})
}
