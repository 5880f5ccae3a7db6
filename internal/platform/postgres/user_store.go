package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/voxworks/studio-api/internal/domain"
	"github.com/voxworks/studio-api/internal/store"
)

// PostgresUserStore implements the store.UserStore interface using PostgreSQL.
type PostgresUserStore struct {
	db store.DBTX
}

// Ensure PostgresUserStore implements store.UserStore.
var _ store.UserStore = (*PostgresUserStore)(nil)

// NewPostgresUserStore creates a new PostgresUserStore.
func NewPostgresUserStore(db store.DBTX) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// GetUser retrieves a user by ID.
func (s *PostgresUserStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, username, hashed_password, created_at
		FROM users
		WHERE id = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *PostgresUserStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, hashed_password, created_at
		FROM users
		WHERE username = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *PostgresUserStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.HashedPassword,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", MapError(err))
	}

	return &user, nil
}
