package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/account-garden/internal/pkg/ctxlog"
	"github.com/bissquit/account-garden/internal/pkg/validation"
)

// InternalErrorMessage is what clients see for unmapped failures.
const InternalErrorMessage = "internal error"

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
}

// MapError resolves err against mappings. Validation failures map to 400 with
// the first field message. ok is false when nothing matched.
func MapError(err error, mappings []ErrorMapping) (status int, message string, ok bool) {
	if errors.Is(err, validation.ErrInvalid) {
		return http.StatusBadRequest, err.Error(), true
	}

	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			if m.Message != "" {
				return m.Status, m.Message, true
			}
			return m.Status, err.Error(), true
		}
	}
	return http.StatusInternalServerError, InternalErrorMessage, false
}

// HandleError writes the envelope for err. Validation errors carry the field list
// in data; unmapped errors are logged and answered with 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	if errors.Is(err, validation.ErrInvalid) {
		ValidationError(w, err)
		return
	}

	status, message, ok := MapError(err, mappings)
	if !ok {
		ctxlog.FromContext(ctx).Error("internal error", "error", err)
	}
	Error(w, status, message)
}
