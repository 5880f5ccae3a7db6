package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/voxworks/studio-api/internal/platform/postgres"
	"github.com/voxworks/studio-api/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantIs   error
		wantSame bool
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name:   "no rows maps to not found",
			err:    fmt.Errorf("query: %w", sql.ErrNoRows),
			wantIs: store.ErrNotFound,
		},
		{
			name:   "unique violation maps to duplicate",
			err:    &pgconn.PgError{Code: "23505"},
			wantIs: store.ErrDuplicate,
		},
		{
			name:   "foreign key violation maps to invalid entity",
			err:    &pgconn.PgError{Code: "23503", ConstraintName: "jobs_project_id_fkey"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:   "check violation maps to invalid entity",
			err:    &pgconn.PgError{Code: "23514", ConstraintName: "jobs_progress_check"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:   "not null violation maps to invalid entity",
			err:    &pgconn.PgError{Code: "23502", ColumnName: "status"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:     "unknown error passes through",
			err:      errors.New("connection reset"),
			wantSame: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mapped := postgres.MapError(tt.err)

			switch {
			case tt.err == nil:
				assert.NoError(t, mapped)
			case tt.wantSame:
				assert.Equal(t, tt.err, mapped)
			default:
				assert.ErrorIs(t, mapped, tt.wantIs)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, postgres.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, postgres.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, postgres.IsUniqueViolation(errors.New("other")))
}
