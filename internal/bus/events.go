package bus

import (
	"time"

	"github.com/google/uuid"
	"github.com/voxworks/studio-api/internal/domain"
)

// EventType discriminates the notification payloads carried by the bus.
type EventType string

// Event types forwarded to subscribers. Each maps one-to-one onto a
// server-to-client envelope at the gateway.
const (
	EventTypeJobUpdate       EventType = "job_update"
	EventTypeJobProgress     EventType = "job_progress"
	EventTypeJobStatusChange EventType = "job_status_change"
)

// Event is a single job notification. Every event embeds the full job
// snapshot so consumers can rebuild state from the latest event alone.
type Event struct {
	Type           EventType           `json:"type"`
	JobID          uuid.UUID           `json:"job_id"`
	Job            *domain.JobSnapshot `json:"job,omitempty"`
	Progress       int                 `json:"progress"`
	Status         domain.JobStatus    `json:"status,omitempty"`
	PreviousStatus domain.JobStatus    `json:"previous_status,omitempty"`
	Error          string              `json:"error,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
}

// JobTopic derives the topic that carries every event for a single job.
func JobTopic(jobID uuid.UUID) string {
	return "job:" + jobID.String()
}

// UserTopic derives the topic that carries events for every job created by
// a user, so a user-level subscriber never needs per-job subscriptions.
func UserTopic(userID uuid.UUID) string {
	return "user:" + userID.String()
}
