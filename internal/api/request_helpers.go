package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/voxworks/studio-api/internal/api/shared"
)

// Thin forwarding helpers keep handler bodies free of package qualifiers.

func decodeJSON(r *http.Request, v interface{}) error {
	return shared.DecodeJSON(r, v)
}

func respondWithJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	shared.RespondWithJSON(w, r, status, data)
}

func respondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	shared.RespondWithError(w, r, status, message)
}

func respondWithErrorAndLog(w http.ResponseWriter, r *http.Request, status int, userMessage string, err error) {
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}

// getUserIDFromContext extracts the authenticated user's UUID from the request
// context. The user ID is placed there by the authentication middleware.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// getPathUUID extracts and parses a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, bool) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}
