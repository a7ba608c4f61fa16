package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"feedctl/internal/usecase/classify"
)

// LLMHealthHandler reports circuit-breaker state per classification
// provider, distinct from the generic /ready DB-backed probe: a provider
// can be breaker-open while the rest of the service is perfectly healthy.
type LLMHealthHandler struct {
	router *classify.Router
}

// NewLLMHealthHandler creates a new LLM provider health check handler.
func NewLLMHealthHandler(router *classify.Router) *LLMHealthHandler {
	return &LLMHealthHandler{router: router}
}

// LLMHealthResponse is the response body for /health/llm and /ready/llm.
type LLMHealthResponse struct {
	Status   string          `json:"status"`
	Breakers map[string]bool `json:"breakers,omitempty"`
	Ready    *bool           `json:"ready,omitempty"`
}

// Health returns per-provider breaker state.
// GET /health/llm
// Returns 200 unless every configured provider's breaker is open.
func (h *LLMHealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	breakers := h.router.BreakerStatus()

	w.Header().Set("Content-Type", "application/json")

	allOpen := len(breakers) > 0
	for _, open := range breakers {
		if !open {
			allOpen = false
		}
	}

	status := "healthy"
	code := http.StatusOK
	if allOpen {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(LLMHealthResponse{Status: status, Breakers: breakers}); err != nil {
		slog.Error("failed to encode LLM health response", slog.Any("error", err))
	}
}

// Ready reports whether at least one classification provider's breaker
// is closed, so traffic can still be served.
// GET /ready/llm
func (h *LLMHealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	breakers := h.router.BreakerStatus()

	w.Header().Set("Content-Type", "application/json")

	anyClosed := len(breakers) == 0
	for _, open := range breakers {
		if !open {
			anyClosed = true
		}
	}

	ready := anyClosed
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(LLMHealthResponse{Ready: &ready, Breakers: breakers}); err != nil {
		slog.Error("failed to encode LLM ready response", slog.Any("error", err))
	}
}
