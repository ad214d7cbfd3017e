// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
	"strings"
)

// Sentinel errors for the domain layer. Domain packages wrap these with a
// user-facing message, e.g. fmt.Errorf("username already exists: %w", ErrConflict).
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthenticated")
)

// FieldErrors carries per-field validation messages.
type FieldErrors struct {
	Fields map[string]string
}

func (e *FieldErrors) Error() string {
	return ErrValidation.Error()
}

func (e *FieldErrors) Unwrap() error {
	return ErrValidation
}

// RespondError maps domain errors to HTTP responses with a uniform {"error": ...} body.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		var fe *FieldErrors
		if errors.As(err, &fe) {
			JSON(w, http.StatusBadRequest, ErrorBody{Error: ErrValidation.Error(), Fields: fe.Fields})
			return
		}
		Error(w, http.StatusBadRequest, Message(err, ErrValidation))
	case errors.Is(err, ErrConflict):
		// Duplicate fields are reported as bad input, matching registration semantics.
		Error(w, http.StatusBadRequest, Message(err, ErrConflict))
	case errors.Is(err, ErrUnauthorized):
		Error(w, http.StatusUnauthorized, Message(err, ErrUnauthorized))
	case errors.Is(err, ErrForbidden):
		Error(w, http.StatusForbidden, Message(err, ErrForbidden))
	case errors.Is(err, ErrNotFound):
		Error(w, http.StatusNotFound, Message(err, ErrNotFound))
	default:
		Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// Message strips the sentinel suffix from a wrapped error so only the
// user-facing prefix is returned. Unwrapped sentinels return their own text.
func Message(err, sentinel error) string {
	msg := err.Error()
	suffix := ": " + sentinel.Error()
	if trimmed := strings.TrimSuffix(msg, suffix); trimmed != msg && trimmed != "" {
		return trimmed
	}
	return msg
}

// Unexpected reports whether err falls outside the sentinel taxonomy and
// will surface as a 500.
func Unexpected(err error) bool {
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, sentinel) {
			return false
		}
	}
	return err != nil
}
