// Package classify turns an item's title and summary into the canonical
// sentiment/impact/geopolitical analysis payload via a provider-selected
// LLM call, generalized from internal/infra/summarizer's Claude and OpenAI
// adapters: same circuit-breaker + retry wrapping, same request-id/duration
// logging, but the prompt asks for structured JSON instead of prose and
// the response is parsed, validated, and normalized instead of passed
// through as text.
package classify

import (
	"context"
	"errors"
	"fmt"

	"feedctl/internal/domain/entity"
)

// ErrBreakerOpen is returned (wrapped in a ClassifyError) when the
// provider's circuit breaker is open and the call was rejected without
// reaching the network.
var ErrBreakerOpen = errors.New("classify: provider circuit breaker open")

// ErrorKind classifies a classification failure.
type ErrorKind string

const (
	ErrorInvalidResponse ErrorKind = "invalid_response"
	ErrorProviderError   ErrorKind = "provider_error"
	ErrorTimeout         ErrorKind = "timeout"
	ErrorRateLimited     ErrorKind = "rate_limited"
)

// ClassifyError wraps a classification failure with its kind.
type ClassifyError struct {
	Kind     ErrorKind
	ModelTag string
	Err      error
}

func (e *ClassifyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("classify %s: %s", e.ModelTag, e.Kind)
	}
	return fmt.Sprintf("classify %s: %s: %v", e.ModelTag, e.Kind, e.Err)
}

func (e *ClassifyError) Unwrap() error { return e.Err }

func newClassifyError(kind ErrorKind, modelTag string, err error) *ClassifyError {
	return &ClassifyError{Kind: kind, ModelTag: modelTag, Err: err}
}

// Usage reports the token accounting and cost of one classify call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Result is the output of one successful classify call.
type Result struct {
	Payload entity.AnalysisPayload
	Usage   Usage
}

// Classifier turns (title, summary) into a canonical AnalysisPayload using
// the model identified by modelTag.
type Classifier interface {
	Classify(ctx context.Context, title, summary, modelTag string) (Result, error)
}
