package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies which processing routine a job runs.
type JobType string

// Supported job types. Unrecognized values fall back to the generic routine.
const (
	JobTypeSTT          JobType = "stt"
	JobTypeTTS          JobType = "tts"
	JobTypeVoiceCloning JobType = "voice_cloning"
	JobTypeDubbing      JobType = "dubbing"
	JobTypeAIStories    JobType = "ai_stories"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a job in status s may move to next.
// The lifecycle is monotonic: pending -> running -> {completed, failed, cancelled}.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed || next == JobStatusCancelled
	default:
		return false
	}
}

// Job represents a unit of asynchronous AI work attached to a project.
// It tracks the processing state and progress of a single routine invocation.
type Job struct {
	ID        uuid.UUID      `json:"id"`
	ProjectID uuid.UUID      `json:"project_id"`
	Type      JobType        `json:"type"`
	Status    JobStatus      `json:"status"`
	Progress  int            `json:"progress"`
	InputURL  string         `json:"input_url,omitempty"`
	InputFile string         `json:"input_file,omitempty"`
	CreatedBy uuid.UUID      `json:"created_by"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewJob creates a new pending Job for the given project, type, and creator.
// It generates a new UUID, sets progress to zero, and stamps the creation time.
// Returns an error if validation fails.
func NewJob(projectID, createdBy uuid.UUID, jobType JobType) (*Job, error) {
	job := &Job{
		ID:        uuid.New(),
		ProjectID: projectID,
		Type:      jobType,
		Status:    JobStatusPending,
		Progress:  0,
		CreatedBy: createdBy,
		Meta:      map[string]any{},
		CreatedAt: time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
// Returns an error if any field fails validation.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if j.ProjectID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if j.CreatedBy == uuid.Nil {
		return ErrEmptyCreatorID
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	if j.Progress < 0 || j.Progress > 100 {
		return ErrInvalidProgress
	}

	return nil
}

// ClampProgress bounds a raw progress value into the valid [0, 100] range.
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// JobSnapshot is the denormalized view of a job embedded in every outbound
// notification. Carrying the full snapshot lets clients rebuild state from the
// latest message alone, tolerating missed intermediate events.
type JobSnapshot struct {
	ID                uuid.UUID `json:"id"`
	Type              JobType   `json:"type"`
	Status            JobStatus `json:"status"`
	Progress          int       `json:"progress"`
	InputURL          string    `json:"input_url,omitempty"`
	ProjectID         uuid.UUID `json:"project_id"`
	ProjectName       string    `json:"project_name"`
	CreatedByID       uuid.UUID `json:"created_by_id"`
	CreatedByUsername string    `json:"created_by_username"`
	CreatedAt         time.Time `json:"created_at"`
}
