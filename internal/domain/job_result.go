package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobResult stores the durable output of a successfully completed job.
// At most one result exists per job, created (or replaced) by the executor
// when the job reaches the completed state. Failed and cancelled jobs never
// produce a result.
type JobResult struct {
	JobID      uuid.UUID      `json:"job_id"`
	ResultURL  string         `json:"result_url,omitempty"`
	ResultFile string         `json:"result_file,omitempty"`
	Logs       string         `json:"logs,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`
}

// NewJobResult creates a JobResult for the given job with the completion
// timestamp set to now. Returns an error if validation fails.
func NewJobResult(jobID uuid.UUID, resultURL, logs string, meta map[string]any) (*JobResult, error) {
	result := &JobResult{
		JobID:      jobID,
		ResultURL:  resultURL,
		Logs:       logs,
		Meta:       meta,
		FinishedAt: time.Now().UTC(),
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return result, nil
}

// Validate checks if the JobResult has valid data.
func (r *JobResult) Validate() error {
	if r.JobID == uuid.Nil {
		return ErrEmptyJobID
	}

	return nil
}
