package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxworks/studio-api/internal/domain"
	"github.com/voxworks/studio-api/internal/platform/postgres"
	"github.com/voxworks/studio-api/internal/store"
)

// The transition guard runs before any database access, so these cases are
// testable without a live Postgres instance.
func TestCompareAndSetStatus_RejectsIllegalTransitions(t *testing.T) {
	t.Parallel()

	s := postgres.NewPostgresJobStore(nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		expected domain.JobStatus
		next     domain.JobStatus
	}{
		{name: "pending to completed", expected: domain.JobStatusPending, next: domain.JobStatusCompleted},
		{name: "pending to cancelled", expected: domain.JobStatusPending, next: domain.JobStatusCancelled},
		{name: "completed to running", expected: domain.JobStatusCompleted, next: domain.JobStatusRunning},
		{name: "failed to running", expected: domain.JobStatusFailed, next: domain.JobStatusRunning},
		{name: "cancelled to running", expected: domain.JobStatusCancelled, next: domain.JobStatusRunning},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := s.CompareAndSetStatus(ctx, uuid.New(), tt.expected, tt.next)
			assert.False(t, ok)
			assert.ErrorIs(t, err, store.ErrInvalidTransition)
		})
	}
}

// Validation also runs before any database access.
func TestCreateJob_RejectsInvalidJob(t *testing.T) {
	t.Parallel()

	s := postgres.NewPostgresJobStore(nil)

	err := s.CreateJob(context.Background(), &domain.Job{})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestUpsertResult_RejectsInvalidResult(t *testing.T) {
	t.Parallel()

	s := postgres.NewPostgresJobStore(nil)

	err := s.UpsertResult(context.Background(), &domain.JobResult{})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}
