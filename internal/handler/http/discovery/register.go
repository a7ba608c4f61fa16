package discovery

import "net/http"

// Register wires the discovery surface onto mux.
func Register(mux *http.ServeMux) {
	mux.Handle("GET    /discovery/schemas", SchemasHandler{})
	mux.Handle("GET    /discovery/schemas/{name}", SchemasHandler{})
	mux.Handle("GET    /discovery/examples/{type}", ExamplesHandler{})
	mux.Handle("GET    /discovery/usage-guide", UsageGuideHandler{})
	mux.Handle("GET    /discovery/features", FeaturesHandler{})
}
