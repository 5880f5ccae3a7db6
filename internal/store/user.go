package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/voxworks/studio-api/internal/domain"
)

// UserStore defines the read-side interface for user lookups. Account
// management lives outside this service; token issuance only needs to resolve
// credentials and identities.
type UserStore interface {
	// GetUser retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetUserByUsername retrieves a user by username.
	// Returns ErrUserNotFound if the user does not exist.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}
