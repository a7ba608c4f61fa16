// Package apierr maps domain and usecase sentinel errors to the
// {error:{kind,message,details}} envelope §7 of the spec requires, so
// every new handler package shares one error-to-status translation
// instead of re-deriving it per endpoint.
package apierr

import (
	"errors"
	"net/http"

	"feedctl/internal/domain/entity"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/usecase/classify"
	"feedctl/internal/usecase/governor"
)

// Write inspects err and writes the best-matching status code and kind.
// Anything unrecognized collapses to a generic internal_error, never
// leaking the underlying message to the client.
func Write(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var ve *entity.ValidationError
	switch {
	case errors.Is(err, entity.ErrNotFound):
		respond.Fail(w, http.StatusNotFound, respond.KindNotFound, err.Error(), nil)
	case errors.Is(err, entity.ErrConflict):
		respond.Fail(w, http.StatusConflict, respond.KindConflict, err.Error(), nil)
	case errors.Is(err, governor.ErrSystemHalted):
		respond.Fail(w, http.StatusBadRequest, respond.KindSystemHalted, err.Error(), nil)
	case errors.Is(err, governor.ErrLimitExceeded):
		respond.Fail(w, http.StatusBadRequest, respond.KindLimitExceeded, err.Error(), nil)
	case errors.Is(err, classify.ErrBreakerOpen):
		respond.Fail(w, http.StatusServiceUnavailable, respond.KindBreakerOpen, err.Error(), nil)
	case errors.As(err, &ve):
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), map[string]string{"field": ve.Field})
	case errors.Is(err, entity.ErrValidationFailed), errors.Is(err, entity.ErrInvalidInput):
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
	default:
		respond.Fail(w, http.StatusInternalServerError, respond.KindInternal, "internal server error", nil)
	}
}
