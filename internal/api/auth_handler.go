package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/voxworks/studio-api/internal/api/shared"
	"github.com/voxworks/studio-api/internal/service/auth"
	"github.com/voxworks/studio-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
) *AuthHandler {
	return &AuthHandler{
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
	}
}

// Login handles the /auth/login endpoint. It verifies the credentials and
// issues an access/refresh token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.userStore.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.Error("failed to get user by username", "error", err)
		respondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to authenticate user", err)
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		respondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	accessToken, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		respondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to generate authentication token", err)
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), user.ID)
	if err != nil {
		respondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to generate refresh token", err)
		return
	}

	respondWithJSON(w, r, http.StatusOK, AuthResponse{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// RefreshToken handles the /auth/refresh endpoint. It validates the refresh
// token and issues a fresh access/refresh token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest

	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Refresh token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	accessToken, err := h.jwtService.GenerateToken(r.Context(), claims.UserID)
	if err != nil {
		respondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to generate authentication token", err)
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), claims.UserID)
	if err != nil {
		respondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to generate refresh token", err)
		return
	}

	respondWithJSON(w, r, http.StatusOK, AuthResponse{
		UserID:       claims.UserID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}
