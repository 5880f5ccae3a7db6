package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the principal that creates jobs and subscribes to notifications.
// Account management lives outside this service; the job pipeline only needs
// the identity and display name for snapshots and topic derivation.
type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Username == "" {
		return ErrEmptyUsername
	}

	return nil
}
