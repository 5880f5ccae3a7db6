package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxworks/studio-api/internal/domain"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	t.Run("creates valid pending job", func(t *testing.T) {
		t.Parallel()

		projectID := uuid.New()
		creatorID := uuid.New()

		job, err := domain.NewJob(projectID, creatorID, domain.JobTypeTTS)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, job.ID)
		assert.Equal(t, projectID, job.ProjectID)
		assert.Equal(t, creatorID, job.CreatedBy)
		assert.Equal(t, domain.JobTypeTTS, job.Type)
		assert.Equal(t, domain.JobStatusPending, job.Status)
		assert.Equal(t, 0, job.Progress)
		assert.False(t, job.CreatedAt.IsZero())
	})

	t.Run("rejects missing project", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewJob(uuid.Nil, uuid.New(), domain.JobTypeSTT)
		assert.ErrorIs(t, err, domain.ErrEmptyProjectID)
	})

	t.Run("rejects missing creator", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewJob(uuid.New(), uuid.Nil, domain.JobTypeSTT)
		assert.ErrorIs(t, err, domain.ErrEmptyCreatorID)
	})
}

func TestJobStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    domain.JobStatus
		to      domain.JobStatus
		allowed bool
	}{
		{"pending to running", domain.JobStatusPending, domain.JobStatusRunning, true},
		{"pending to completed skips running", domain.JobStatusPending, domain.JobStatusCompleted, false},
		{"pending to cancelled skips running", domain.JobStatusPending, domain.JobStatusCancelled, false},
		{"running to completed", domain.JobStatusRunning, domain.JobStatusCompleted, true},
		{"running to failed", domain.JobStatusRunning, domain.JobStatusFailed, true},
		{"running to cancelled", domain.JobStatusRunning, domain.JobStatusCancelled, true},
		{"running back to pending", domain.JobStatusRunning, domain.JobStatusPending, false},
		{"completed is terminal", domain.JobStatusCompleted, domain.JobStatusRunning, false},
		{"failed is terminal", domain.JobStatusFailed, domain.JobStatusRunning, false},
		{"cancelled is terminal", domain.JobStatusCancelled, domain.JobStatusRunning, false},
		{"completed to failed", domain.JobStatusCompleted, domain.JobStatusFailed, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, domain.JobStatusPending.IsTerminal())
	assert.False(t, domain.JobStatusRunning.IsTerminal())
	assert.True(t, domain.JobStatusCompleted.IsTerminal())
	assert.True(t, domain.JobStatusFailed.IsTerminal())
	assert.True(t, domain.JobStatusCancelled.IsTerminal())
}

func TestClampProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"negative clamps to zero", -20, 0},
		{"zero unchanged", 0, 0},
		{"mid-range unchanged", 55, 55},
		{"hundred unchanged", 100, 100},
		{"overflow clamps to hundred", 150, 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, domain.ClampProgress(tt.in))
		})
	}
}

func TestJob_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *domain.Job {
		return &domain.Job{
			ID:        uuid.New(),
			ProjectID: uuid.New(),
			Type:      domain.JobTypeDubbing,
			Status:    domain.JobStatusPending,
			CreatedBy: uuid.New(),
		}
	}

	t.Run("valid job passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, valid().Validate())
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		t.Parallel()
		job := valid()
		job.Status = domain.JobStatus("exploded")
		assert.ErrorIs(t, job.Validate(), domain.ErrInvalidJobStatus)
	})

	t.Run("out of range progress rejected", func(t *testing.T) {
		t.Parallel()
		job := valid()
		job.Progress = 101
		assert.ErrorIs(t, job.Validate(), domain.ErrInvalidProgress)
	})
}
