package feed

import (
	"net/http"

	"feedctl/internal/repository"
)

// Register wires the feed CRUD surface plus the manual-fetch trigger onto
// mux. No auth middleware wraps these routes: the system runs on a
// trusted network per the feed-control-plane's scope.
func Register(mux *http.ServeMux, feeds repository.FeedRepository, sched Scheduler) {
	mux.Handle("GET    /feeds", ListHandler{Feeds: feeds})
	mux.Handle("POST   /feeds", CreateHandler{Feeds: feeds})
	mux.Handle("POST   /feeds/{id}/fetch", FetchHandler{Scheduler: sched})
	mux.Handle("GET    /feeds/{id}", GetHandler{Feeds: feeds})
	mux.Handle("PUT    /feeds/{id}", UpdateHandler{Feeds: feeds})
	mux.Handle("DELETE /feeds/{id}", DeleteHandler{Feeds: feeds})
}
