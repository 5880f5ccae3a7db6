package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxworks/studio-api/internal/api"
	"github.com/voxworks/studio-api/internal/config"
	"github.com/voxworks/studio-api/internal/domain"
	"github.com/voxworks/studio-api/internal/service/auth"
	"github.com/voxworks/studio-api/internal/store"
)

type authHandlerEnv struct {
	handler  *api.AuthHandler
	jwt      auth.JWTService
	userID   uuid.UUID
	username string
	password string
}

func newAuthHandlerEnv(t *testing.T) *authHandlerEnv {
	t.Helper()

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "0123456789abcdef0123456789abcdef",
		TokenLifetimeMinutes:        15,
		RefreshTokenLifetimeMinutes: 1440,
	})
	require.NoError(t, err)

	password := "correct horse battery staple"
	hashed, err := auth.HashPassword(password)
	require.NoError(t, err)

	memStore := store.NewMemoryJobStore()
	userID := uuid.New()
	memStore.SeedUser(domain.User{
		ID:             userID,
		Username:       "casey",
		HashedPassword: hashed,
		CreatedAt:      time.Now().UTC(),
	})

	return &authHandlerEnv{
		handler:  api.NewAuthHandler(memStore, jwtService, auth.NewBcryptVerifier()),
		jwt:      jwtService,
		userID:   userID,
		username: "casey",
		password: password,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	t.Run("issues token pair for valid credentials", func(t *testing.T) {
		t.Parallel()

		env := newAuthHandlerEnv(t)
		rec := postJSON(t, env.handler.Login, "/api/auth/login", api.LoginRequest{
			Username: env.username,
			Password: env.password,
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp api.AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, env.userID, resp.UserID)

		claims, err := env.jwt.ValidateToken(context.Background(), resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, env.userID, claims.UserID)

		refreshClaims, err := env.jwt.ValidateRefreshToken(context.Background(), resp.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, env.userID, refreshClaims.UserID)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		t.Parallel()

		env := newAuthHandlerEnv(t)
		rec := postJSON(t, env.handler.Login, "/api/auth/login", api.LoginRequest{
			Username: env.username,
			Password: "wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user is unauthorized", func(t *testing.T) {
		t.Parallel()

		env := newAuthHandlerEnv(t)
		rec := postJSON(t, env.handler.Login, "/api/auth/login", api.LoginRequest{
			Username: "nobody",
			Password: env.password,
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		t.Parallel()

		env := newAuthHandlerEnv(t)
		rec := postJSON(t, env.handler.Login, "/api/auth/login", api.LoginRequest{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("exchanges refresh token for new pair", func(t *testing.T) {
		t.Parallel()

		env := newAuthHandlerEnv(t)
		refreshToken, err := env.jwt.GenerateRefreshToken(context.Background(), env.userID)
		require.NoError(t, err)

		rec := postJSON(t, env.handler.RefreshToken, "/api/auth/refresh", api.RefreshTokenRequest{
			RefreshToken: refreshToken,
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp api.AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		claims, err := env.jwt.ValidateToken(context.Background(), resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, env.userID, claims.UserID)
	})

	t.Run("access token is not accepted as refresh token", func(t *testing.T) {
		t.Parallel()

		env := newAuthHandlerEnv(t)
		accessToken, err := env.jwt.GenerateToken(context.Background(), env.userID)
		require.NoError(t, err)

		rec := postJSON(t, env.handler.RefreshToken, "/api/auth/refresh", api.RefreshTokenRequest{
			RefreshToken: accessToken,
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		t.Parallel()

		env := newAuthHandlerEnv(t)
		rec := postJSON(t, env.handler.RefreshToken, "/api/auth/refresh", api.RefreshTokenRequest{
			RefreshToken: "not.a.token",
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
