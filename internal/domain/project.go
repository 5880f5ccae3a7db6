package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project groups related jobs under an owning user. Project CRUD lives
// outside this service; jobs only reference projects by ID and name.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks if the Project has valid data.
func (p *Project) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if p.Name == "" {
		return ErrEmptyProjectName
	}

	return nil
}
