// Package errors defines the sentinel errors shared by the dictionary core
// and the services built on it, plus an AppError carrying an HTTP status for
// the lookup API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrFrozen is returned when a dictionary is mutated after Freeze.
	ErrFrozen = errors.New("dictionary is frozen")
	// ErrFormat is returned when a persisted dictionary cannot be written or
	// read with the requested collaborators.
	ErrFormat = errors.New("unsupported dictionary format")
	// ErrCorrupt is returned for truncated or damaged dictionary files.
	ErrCorrupt = errors.New("corrupt dictionary file")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("dictionary unavailable")
	ErrInternal     = errors.New("internal error")
	ErrTimeout      = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrFrozen):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrFormat), errors.Is(err, ErrCorrupt):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
