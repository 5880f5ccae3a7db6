// Package api implements the HTTP handlers for the job service.
package api

import (
	"errors"
	"net/http"

	"github.com/voxworks/studio-api/internal/service/auth"
	"github.com/voxworks/studio-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrJobNotFound),
		errors.Is(err, store.ErrResultNotFound),
		errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, store.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, store.ErrResultNotFound):
		return "Job result not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrInvalidTransition):
		return "Job is not in a state that allows this operation"

	case errors.Is(err, store.ErrDuplicate):
		return "Job already exists"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid job data"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes an error response using the standard status-code and
// message mapping. An explicit userMessage overrides the mapped message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	respondWithErrorAndLog(w, r, status, userMessage, err)
}
