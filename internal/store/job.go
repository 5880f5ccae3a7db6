package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/voxworks/studio-api/internal/domain"
)

// JobStore defines the interface for job and job result persistence.
// Version: 1.0
type JobStore interface {
	// CreateJob saves a new job to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Job if data is invalid.
	CreateJob(ctx context.Context, job *domain.Job) error

	// GetJob retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// GetSnapshot retrieves the denormalized notification view of a job,
	// including the owning project's name and the creator's username.
	// Returns ErrJobNotFound if the job does not exist.
	GetSnapshot(ctx context.Context, id uuid.UUID) (*domain.JobSnapshot, error)

	// CompareAndSetStatus atomically transitions a job from expected to next.
	// It returns false (with a nil error) when the job's current status does
	// not match expected, leaving the record untouched. The transition itself
	// must be legal per domain.JobStatus.CanTransitionTo; illegal transitions
	// return ErrInvalidTransition.
	// Returns ErrJobNotFound if the job does not exist.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next domain.JobStatus) (bool, error)

	// UpdateProgress persists a progress value, clamped into [0, 100].
	// When status is non-empty the job's status is updated in the same write.
	// Returns ErrJobNotFound if the job does not exist.
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int, status domain.JobStatus) error

	// UpsertResult creates or replaces the result record for a job.
	// At most one result exists per job; replaying the upsert is idempotent.
	UpsertResult(ctx context.Context, result *domain.JobResult) error

	// GetResult retrieves the result for a job.
	// Returns ErrResultNotFound if no result exists.
	GetResult(ctx context.Context, jobID uuid.UUID) (*domain.JobResult, error)
}
