package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/voxworks/studio-api/internal/domain"
	"github.com/voxworks/studio-api/internal/platform/logger"
	"github.com/voxworks/studio-api/internal/store"
)

// PostgresJobStore implements the store.JobStore interface using PostgreSQL.
type PostgresJobStore struct {
	db store.DBTX
}

// Ensure PostgresJobStore implements store.JobStore.
var _ store.JobStore = (*PostgresJobStore)(nil)

// NewPostgresJobStore creates a new PostgresJobStore.
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

// CreateJob saves a new job to the database.
func (s *PostgresJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	log := logger.FromContext(ctx)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	meta, err := marshalMeta(job.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode job meta: %w", err)
	}

	query := `
		INSERT INTO jobs (id, project_id, type, status, progress, input_url, input_file, created_by, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.ProjectID,
		job.Type,
		job.Status,
		job.Progress,
		job.InputURL,
		job.InputFile,
		job.CreatedBy,
		meta,
		job.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create job",
			"job_id", job.ID,
			"job_type", job.Type,
			"error", err)
		return fmt.Errorf("failed to create job: %w", MapError(err))
	}

	return nil
}

// GetJob retrieves a job by its unique ID.
func (s *PostgresJobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, project_id, type, status, progress, input_url, input_file, created_by, meta, created_at
		FROM jobs
		WHERE id = $1
	`

	var (
		job  domain.Job
		meta []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.ProjectID,
		&job.Type,
		&job.Status,
		&job.Progress,
		&job.InputURL,
		&job.InputFile,
		&job.CreatedBy,
		&meta,
		&job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", MapError(err))
	}

	if err := unmarshalMeta(meta, &job.Meta); err != nil {
		return nil, fmt.Errorf("failed to decode job meta: %w", err)
	}

	return &job, nil
}

// GetSnapshot retrieves the denormalized notification view of a job, joining
// the owning project's name and the creator's username.
func (s *PostgresJobStore) GetSnapshot(ctx context.Context, id uuid.UUID) (*domain.JobSnapshot, error) {
	query := `
		SELECT j.id, j.type, j.status, j.progress, j.input_url,
		       j.project_id, p.name, j.created_by, u.username, j.created_at
		FROM jobs j
		JOIN projects p ON p.id = j.project_id
		JOIN users u ON u.id = j.created_by
		WHERE j.id = $1
	`

	var snapshot domain.JobSnapshot
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&snapshot.ID,
		&snapshot.Type,
		&snapshot.Status,
		&snapshot.Progress,
		&snapshot.InputURL,
		&snapshot.ProjectID,
		&snapshot.ProjectName,
		&snapshot.CreatedByID,
		&snapshot.CreatedByUsername,
		&snapshot.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job snapshot: %w", MapError(err))
	}

	return &snapshot, nil
}

// CompareAndSetStatus atomically transitions a job from expected to next using
// a conditional UPDATE. The database enforces the compare; a lost race leaves
// the row untouched and returns false with a nil error.
func (s *PostgresJobStore) CompareAndSetStatus(
	ctx context.Context,
	id uuid.UUID,
	expected, next domain.JobStatus,
) (bool, error) {
	if !expected.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, expected, next)
	}

	query := `
		UPDATE jobs
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update job status: %w", MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// No row changed: distinguish a missing job from a compare mismatch.
	var current domain.JobStatus
	err = s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, store.ErrJobNotFound
		}
		return false, fmt.Errorf("failed to get job status: %w", MapError(err))
	}

	return false, nil
}

// UpdateProgress persists a progress value, clamped into [0, 100]. Progress
// never decreases while the job is running; a lower value is treated as stale
// and the stored value is kept. When status is non-empty it is updated in the
// same write.
func (s *PostgresJobStore) UpdateProgress(
	ctx context.Context,
	id uuid.UUID,
	progress int,
	status domain.JobStatus,
) error {
	query := `
		UPDATE jobs
		SET progress = CASE WHEN status = 'running' THEN GREATEST(progress, $1) ELSE $1 END,
		    status = COALESCE(NULLIF($2, ''), status)
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.ClampProgress(progress), string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrJobNotFound
	}

	return nil
}

// UpsertResult creates or replaces the result record for a job.
func (s *PostgresJobStore) UpsertResult(ctx context.Context, result *domain.JobResult) error {
	log := logger.FromContext(ctx)

	if err := result.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	meta, err := marshalMeta(result.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode result meta: %w", err)
	}

	query := `
		INSERT INTO job_results (job_id, result_url, result_file, logs, meta, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO UPDATE
		SET result_url = EXCLUDED.result_url,
		    result_file = EXCLUDED.result_file,
		    logs = EXCLUDED.logs,
		    meta = EXCLUDED.meta,
		    finished_at = EXCLUDED.finished_at
	`

	_, err = s.db.ExecContext(ctx, query,
		result.JobID,
		result.ResultURL,
		result.ResultFile,
		result.Logs,
		meta,
		result.FinishedAt,
	)
	if err != nil {
		log.Error("failed to upsert job result",
			"job_id", result.JobID,
			"error", err)
		mapped := MapError(err)
		// A foreign key violation means the referenced job is gone.
		if errors.Is(mapped, store.ErrInvalidEntity) {
			return store.ErrJobNotFound
		}
		return fmt.Errorf("failed to upsert job result: %w", mapped)
	}

	return nil
}

// GetResult retrieves the result for a job.
func (s *PostgresJobStore) GetResult(ctx context.Context, jobID uuid.UUID) (*domain.JobResult, error) {
	query := `
		SELECT job_id, result_url, result_file, logs, meta, finished_at
		FROM job_results
		WHERE job_id = $1
	`

	var (
		result domain.JobResult
		meta   []byte
	)
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&result.JobID,
		&result.ResultURL,
		&result.ResultFile,
		&result.Logs,
		&meta,
		&result.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get job result: %w", MapError(err))
	}

	if err := unmarshalMeta(meta, &result.Meta); err != nil {
		return nil, fmt.Errorf("failed to decode result meta: %w", err)
	}

	return &result, nil
}

// marshalMeta encodes a meta map as JSONB, normalizing nil to an empty object.
func marshalMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	return json.Marshal(meta)
}

// unmarshalMeta decodes a JSONB column into a meta map, tolerating NULL.
func unmarshalMeta(raw []byte, dst *map[string]any) error {
	if len(raw) == 0 {
		*dst = map[string]any{}
		return nil
	}
	return json.Unmarshal(raw, dst)
}
