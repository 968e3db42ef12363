package domain

import (
	"errors"
	"net/http"
)

// Core error taxonomy. Every error surfaced by the application layer wraps
// exactly one of these so that StatusFor can map it deterministically.
var (
	ErrNotFound        = errors.New("not found")       // 404
	ErrForbidden       = errors.New("forbidden")       // 403
	ErrUnauthenticated = errors.New("unauthenticated") // 401, detected upstream of the core
	ErrConflict        = errors.New("conflict")        // 409
	ErrBadInput        = errors.New("bad input")       // 400
	ErrInternal        = errors.New("internal error")  // 500

	// ErrCacheMiss is returned by CacheStore implementations when a key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")
)

// ErrorCode represents a specific error condition, used as a stable label in
// logs and in middleware failures that never reach the core.
type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NotFound"
	CodeForbidden       ErrorCode = "Forbidden"
	CodeUnauthenticated ErrorCode = "Unauthenticated"
	CodeConflict        ErrorCode = "Conflict"
	CodeBadInput        ErrorCode = "BadInput"
	CodeInternal        ErrorCode = "InternalServerError"
)

// StatusFor maps an error to the HTTP-style status code of the result envelope.
// Errors outside the taxonomy are treated as internal failures.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBadInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CodeFor returns the ErrorCode label for an error.
func CodeFor(err error) ErrorCode {
	switch StatusFor(err) {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusConflict:
		return CodeConflict
	case http.StatusBadRequest:
		return CodeBadInput
	default:
		return CodeInternal
	}
}
