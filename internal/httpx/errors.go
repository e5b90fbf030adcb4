// Package httpx holds the JSON response helpers and the error taxonomy shared
// by all handlers.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayush/pawpal-api/internal/logging"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
)

// InternalMessage is the only text shown to callers for 5xx responses.
const InternalMessage = "Internal server error"

// Error is a client-facing failure: Kind selects the status, Message is
// rendered verbatim.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error   { return NewError(ErrValidation, message) }
func Conflict(message string) *Error     { return NewError(ErrConflict, message) }
func Unauthorized(message string) *Error { return NewError(ErrUnauthorized, message) }
func NotFound(message string) *Error     { return NewError(ErrNotFound, message) }

// Status maps err onto the HTTP status of its taxonomy kind. Unknown errors
// are internal.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"message": msg})
}

// WriteError renders err as {"error": ...}. Internal errors are logged with
// their cause and rendered with a generic message only.
func WriteError(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	status := Status(err)
	msg := InternalMessage

	var e *Error
	if status != http.StatusInternalServerError && errors.As(err, &e) {
		msg = e.Message
	} else if log != nil {
		log.Error(ctx, "request failed", "err", err)
	}

	WriteJSON(w, status, map[string]string{"error": msg})
}

// DecodeJSON decodes the request body into v. Any decoding failure is a
// validation error.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return Validation("Invalid request body")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return Validation("Invalid request body")
	}
	return nil
}
