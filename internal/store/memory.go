package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/voxworks/studio-api/internal/domain"
)

// MemoryJobStore is an in-memory JobStore implementation backed by maps.
// It is safe for concurrent use and is intended for tests and local runs
// without a database.
type MemoryJobStore struct {
	mu       sync.RWMutex
	jobs     map[uuid.UUID]domain.Job
	results  map[uuid.UUID]domain.JobResult
	projects map[uuid.UUID]domain.Project
	users    map[uuid.UUID]domain.User
}

// Ensure MemoryJobStore implements JobStore and UserStore.
var (
	_ JobStore  = (*MemoryJobStore)(nil)
	_ UserStore = (*MemoryJobStore)(nil)
)

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs:     make(map[uuid.UUID]domain.Job),
		results:  make(map[uuid.UUID]domain.JobResult),
		projects: make(map[uuid.UUID]domain.Project),
		users:    make(map[uuid.UUID]domain.User),
	}
}

// SeedProject registers a project so snapshots can resolve its name.
func (s *MemoryJobStore) SeedProject(project domain.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.ID] = project
}

// SeedUser registers a user so snapshots can resolve the creator's username.
func (s *MemoryJobStore) SeedUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// GetUser retrieves a user by ID.
func (s *MemoryJobStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	copied := user
	return &copied, nil
}

// GetUserByUsername retrieves a user by username.
func (s *MemoryJobStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			copied := user
			return &copied, nil
		}
	}

	return nil, ErrUserNotFound
}

// CreateJob saves a new job to the store.
func (s *MemoryJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: job %s", ErrDuplicate, job.ID)
	}

	s.jobs[job.ID] = *job
	return nil
}

// GetJob retrieves a job by ID.
func (s *MemoryJobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	copied := job
	return &copied, nil
}

// GetSnapshot retrieves the denormalized notification view of a job.
func (s *MemoryJobStore) GetSnapshot(ctx context.Context, id uuid.UUID) (*domain.JobSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	snapshot := domain.JobSnapshot{
		ID:          job.ID,
		Type:        job.Type,
		Status:      job.Status,
		Progress:    job.Progress,
		InputURL:    job.InputURL,
		ProjectID:   job.ProjectID,
		CreatedByID: job.CreatedBy,
		CreatedAt:   job.CreatedAt,
	}
	if project, ok := s.projects[job.ProjectID]; ok {
		snapshot.ProjectName = project.Name
	}
	if user, ok := s.users[job.CreatedBy]; ok {
		snapshot.CreatedByUsername = user.Username
	}

	return &snapshot, nil
}

// CompareAndSetStatus atomically transitions a job from expected to next.
func (s *MemoryJobStore) CompareAndSetStatus(
	ctx context.Context,
	id uuid.UUID,
	expected, next domain.JobStatus,
) (bool, error) {
	if !expected.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, expected, next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false, ErrJobNotFound
	}

	if job.Status != expected {
		return false, nil
	}

	job.Status = next
	s.jobs[id] = job
	return true, nil
}

// UpdateProgress persists a progress value, clamped into [0, 100].
// Progress never decreases while the job is running; a lower value is
// treated as stale and the stored value is kept.
func (s *MemoryJobStore) UpdateProgress(
	ctx context.Context,
	id uuid.UUID,
	progress int,
	status domain.JobStatus,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}

	clamped := domain.ClampProgress(progress)
	if job.Status == domain.JobStatusRunning && clamped < job.Progress {
		clamped = job.Progress
	}
	job.Progress = clamped

	if status != "" {
		job.Status = status
	}

	s.jobs[id] = job
	return nil
}

// UpsertResult creates or replaces the result record for a job.
func (s *MemoryJobStore) UpsertResult(ctx context.Context, result *domain.JobResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[result.JobID]; !ok {
		return ErrJobNotFound
	}

	s.results[result.JobID] = *result
	return nil
}

// GetResult retrieves the result for a job.
func (s *MemoryJobStore) GetResult(ctx context.Context, jobID uuid.UUID) (*domain.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[jobID]
	if !ok {
		return nil, ErrResultNotFound
	}

	copied := result
	return &copied, nil
}
