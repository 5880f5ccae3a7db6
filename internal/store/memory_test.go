package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxworks/studio-api/internal/domain"
	"github.com/voxworks/studio-api/internal/store"
)

func newTestJob(t *testing.T, s *store.MemoryJobStore) *domain.Job {
	t.Helper()

	job, err := domain.NewJob(uuid.New(), uuid.New(), domain.JobTypeSTT)
	require.NoError(t, err)
	require.NoError(t, s.CreateJob(context.Background(), job))
	return job
}

func TestMemoryJobStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryJobStore()
	ctx := context.Background()

	job := newTestJob(t, s)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, domain.JobStatusPending, got.Status)

	t.Run("duplicate create rejected", func(t *testing.T) {
		err := s.CreateJob(ctx, job)
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("unknown job not found", func(t *testing.T) {
		_, err := s.GetJob(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrJobNotFound)
	})
}

func TestMemoryJobStore_CompareAndSetStatus(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryJobStore()
	ctx := context.Background()
	job := newTestJob(t, s)

	t.Run("matching expectation swaps", func(t *testing.T) {
		swapped, err := s.CompareAndSetStatus(ctx, job.ID, domain.JobStatusPending, domain.JobStatusRunning)
		require.NoError(t, err)
		assert.True(t, swapped)

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusRunning, got.Status)
	})

	t.Run("stale expectation is a no-op", func(t *testing.T) {
		swapped, err := s.CompareAndSetStatus(ctx, job.ID, domain.JobStatusPending, domain.JobStatusRunning)
		require.NoError(t, err)
		assert.False(t, swapped)
	})

	t.Run("illegal transition rejected", func(t *testing.T) {
		_, err := s.CompareAndSetStatus(ctx, job.ID, domain.JobStatusCompleted, domain.JobStatusRunning)
		assert.ErrorIs(t, err, store.ErrInvalidTransition)
	})

	t.Run("unknown job not found", func(t *testing.T) {
		_, err := s.CompareAndSetStatus(ctx, uuid.New(), domain.JobStatusPending, domain.JobStatusRunning)
		assert.ErrorIs(t, err, store.ErrJobNotFound)
	})
}

func TestMemoryJobStore_UpdateProgress(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryJobStore()
	ctx := context.Background()
	job := newTestJob(t, s)

	swapped, err := s.CompareAndSetStatus(ctx, job.ID, domain.JobStatusPending, domain.JobStatusRunning)
	require.NoError(t, err)
	require.True(t, swapped)

	t.Run("clamps overflow", func(t *testing.T) {
		require.NoError(t, s.UpdateProgress(ctx, job.ID, 150, ""))

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, got.Progress)
	})

	t.Run("never decreases while running", func(t *testing.T) {
		require.NoError(t, s.UpdateProgress(ctx, job.ID, 40, ""))

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, got.Progress)
	})

	t.Run("optional status update applied", func(t *testing.T) {
		require.NoError(t, s.UpdateProgress(ctx, job.ID, 100, domain.JobStatusCompleted))

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, got.Status)
	})
}

func TestMemoryJobStore_UpsertResult(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryJobStore()
	ctx := context.Background()
	job := newTestJob(t, s)

	result, err := domain.NewJobResult(job.ID, "https://example.com/out.mp3", "done", nil)
	require.NoError(t, err)

	require.NoError(t, s.UpsertResult(ctx, result))

	t.Run("replay replaces idempotently", func(t *testing.T) {
		replay, err := domain.NewJobResult(job.ID, "https://example.com/out-v2.mp3", "done again", nil)
		require.NoError(t, err)
		require.NoError(t, s.UpsertResult(ctx, replay))

		got, err := s.GetResult(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/out-v2.mp3", got.ResultURL)
	})

	t.Run("result for unknown job rejected", func(t *testing.T) {
		orphan, err := domain.NewJobResult(uuid.New(), "", "", nil)
		require.NoError(t, err)
		assert.ErrorIs(t, s.UpsertResult(ctx, orphan), store.ErrJobNotFound)
	})

	t.Run("missing result not found", func(t *testing.T) {
		other := newTestJob(t, s)
		_, err := s.GetResult(ctx, other.ID)
		assert.ErrorIs(t, err, store.ErrResultNotFound)
	})
}

func TestMemoryJobStore_GetSnapshot(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryJobStore()
	ctx := context.Background()

	projectID := uuid.New()
	userID := uuid.New()
	s.SeedProject(domain.Project{ID: projectID, Name: "Podcast Localization", OwnerID: userID})
	s.SeedUser(domain.User{ID: userID, Username: "ines"})

	job, err := domain.NewJob(projectID, userID, domain.JobTypeDubbing)
	require.NoError(t, err)
	require.NoError(t, s.CreateJob(ctx, job))

	snapshot, err := s.GetSnapshot(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, snapshot.ID)
	assert.Equal(t, "Podcast Localization", snapshot.ProjectName)
	assert.Equal(t, "ines", snapshot.CreatedByUsername)
	assert.Equal(t, domain.JobTypeDubbing, snapshot.Type)
}
