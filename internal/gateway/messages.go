package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/voxworks/studio-api/internal/bus"
	"github.com/voxworks/studio-api/internal/domain"
)

// Server-to-client and client-to-server message type tags.
const (
	msgTypeConnectionEstablished = "connection_established"
	msgTypeJobUpdate             = "job_update"
	msgTypeJobProgress           = "job_progress"
	msgTypeJobStatusChange       = "job_status_change"
	msgTypePong                  = "pong"
	msgTypeError                 = "error"

	msgTypePing         = "ping"
	msgTypeSubscribeJob = "subscribe_job"
)

// clientMessage is the envelope accepted from clients. Timestamp is kept raw
// so a pong can echo whatever representation the client sent.
type clientMessage struct {
	Type      string          `json:"type"`
	JobID     string          `json:"job_id,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// connectionEstablishedMessage confirms the topic a connection is attached to.
type connectionEstablishedMessage struct {
	Type  string `json:"type"`
	Group string `json:"group"`
	JobID string `json:"job_id,omitempty"`
}

// jobUpdateMessage carries a full job snapshot.
type jobUpdateMessage struct {
	Type      string              `json:"type"`
	Job       *domain.JobSnapshot `json:"job"`
	Timestamp time.Time           `json:"timestamp"`
}

// jobProgressMessage carries a progress checkpoint plus the full snapshot.
type jobProgressMessage struct {
	Type      string              `json:"type"`
	JobID     uuid.UUID           `json:"job_id"`
	Progress  int                 `json:"progress"`
	Status    domain.JobStatus    `json:"status"`
	Job       *domain.JobSnapshot `json:"job,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// jobStatusChangeMessage carries a lifecycle transition plus the full snapshot.
type jobStatusChangeMessage struct {
	Type           string              `json:"type"`
	JobID          uuid.UUID           `json:"job_id"`
	Status         domain.JobStatus    `json:"status"`
	PreviousStatus domain.JobStatus    `json:"previous_status"`
	Job            *domain.JobSnapshot `json:"job,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
	Error          string              `json:"error,omitempty"`
}

// pongMessage answers a client liveness probe, echoing its timestamp.
type pongMessage struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// errorMessage reports a per-connection problem without closing the connection.
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// messageFromEvent frames a bus event into its wire envelope. Unrecognized
// event types are dropped, reported by the false return.
func messageFromEvent(event bus.Event) (any, bool) {
	switch event.Type {
	case bus.EventTypeJobUpdate:
		return jobUpdateMessage{
			Type:      msgTypeJobUpdate,
			Job:       event.Job,
			Timestamp: event.Timestamp,
		}, true

	case bus.EventTypeJobProgress:
		return jobProgressMessage{
			Type:      msgTypeJobProgress,
			JobID:     event.JobID,
			Progress:  event.Progress,
			Status:    event.Status,
			Job:       event.Job,
			Timestamp: event.Timestamp,
		}, true

	case bus.EventTypeJobStatusChange:
		return jobStatusChangeMessage{
			Type:           msgTypeJobStatusChange,
			JobID:          event.JobID,
			Status:         event.Status,
			PreviousStatus: event.PreviousStatus,
			Job:            event.Job,
			Timestamp:      event.Timestamp,
			Error:          event.Error,
		}, true

	default:
		return nil, false
	}
}
