// Package discovery serves the read-only schema/example/usage-guide/
// feature-catalog surface (internal/discovery) over HTTP, so automation
// clients can build against the API without out-of-band documentation.
package discovery

import (
	"net/http"
	"strings"

	"feedctl/internal/discovery"
	"feedctl/internal/handler/http/respond"
)

// SchemasHandler serves GET /discovery/schemas and GET
// /discovery/schemas/{name}.
type SchemasHandler struct{}

func (SchemasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/discovery/schemas")
	name = strings.Trim(name, "/")
	if name == "" {
		respond.JSON(w, http.StatusOK, discovery.Schemas())
		return
	}
	schema, ok := discovery.SchemaByName(name)
	if !ok {
		respond.Fail(w, http.StatusNotFound, respond.KindNotFound, "unknown schema: "+name, nil)
		return
	}
	respond.JSON(w, http.StatusOK, schema)
}

// ExamplesHandler serves GET /discovery/examples/{type}.
type ExamplesHandler struct{}

func (ExamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kind := strings.TrimPrefix(r.URL.Path, "/discovery/examples/")
	example, ok := discovery.ExampleByType(kind)
	if !ok {
		respond.Fail(w, http.StatusNotFound, respond.KindNotFound, "unknown example type: "+kind, nil)
		return
	}
	respond.JSON(w, http.StatusOK, example)
}

// UsageGuideHandler serves GET /discovery/usage-guide as plain text.
type UsageGuideHandler struct{}

func (UsageGuideHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(discovery.UsageGuide))
}

// FeaturesHandler serves GET /discovery/features.
type FeaturesHandler struct{}

func (FeaturesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, discovery.Features)
}
