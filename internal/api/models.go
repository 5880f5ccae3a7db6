package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/voxworks/studio-api/internal/domain"
)

// Common request/response structures

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CreateJobRequest defines the payload for the job creation endpoint.
// Unknown types are accepted and handled by the generic processing routine.
type CreateJobRequest struct {
	ProjectID uuid.UUID      `json:"project_id" validate:"required"`
	Type      string         `json:"type"       validate:"required,max=64"`
	InputURL  string         `json:"input_url"  validate:"omitempty,url"`
	InputFile string         `json:"input_file" validate:"omitempty,max=1024"`
	Meta      map[string]any `json:"meta"`
}

// UpdateProgressRequest defines the payload for the progress nudge endpoint.
// Out-of-range values are clamped into [0, 100]. Status is optional; when set
// it is applied in the same write.
type UpdateProgressRequest struct {
	Progress int              `json:"progress"`
	Status   domain.JobStatus `json:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
}

// JobResponse is the API view of a job.
type JobResponse struct {
	ID        uuid.UUID        `json:"id"`
	ProjectID uuid.UUID        `json:"project_id"`
	Type      domain.JobType   `json:"type"`
	Status    domain.JobStatus `json:"status"`
	Progress  int              `json:"progress"`
	InputURL  string           `json:"input_url,omitempty"`
	InputFile string           `json:"input_file,omitempty"`
	CreatedBy uuid.UUID        `json:"created_by"`
	Meta      map[string]any   `json:"meta,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewJobResponse builds a JobResponse from a domain Job.
func NewJobResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:        job.ID,
		ProjectID: job.ProjectID,
		Type:      job.Type,
		Status:    job.Status,
		Progress:  job.Progress,
		InputURL:  job.InputURL,
		InputFile: job.InputFile,
		CreatedBy: job.CreatedBy,
		Meta:      job.Meta,
		CreatedAt: job.CreatedAt,
	}
}

// JobResultResponse is the API view of a job result.
type JobResultResponse struct {
	JobID      uuid.UUID      `json:"job_id"`
	ResultURL  string         `json:"result_url,omitempty"`
	ResultFile string         `json:"result_file,omitempty"`
	Logs       string         `json:"logs,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`
}

// NewJobResultResponse builds a JobResultResponse from a domain JobResult.
func NewJobResultResponse(result *domain.JobResult) JobResultResponse {
	return JobResultResponse{
		JobID:      result.JobID,
		ResultURL:  result.ResultURL,
		ResultFile: result.ResultFile,
		Logs:       result.Logs,
		Meta:       result.Meta,
		FinishedAt: result.FinishedAt,
	}
}

// CancelJobResponse reports the outcome of a cancel request. Cancelled is
// false when the job was not running; Status carries the state it was in.
type CancelJobResponse struct {
	Cancelled bool             `json:"cancelled"`
	Status    domain.JobStatus `json:"status"`
}
