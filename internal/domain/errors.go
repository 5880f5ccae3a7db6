// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrEmptyJobID is returned when a job ID is missing.
	ErrEmptyJobID = errors.New("job ID cannot be empty")

	// ErrEmptyProjectID is returned when a project reference is missing.
	ErrEmptyProjectID = errors.New("project ID cannot be empty")

	// ErrEmptyProjectName is returned when a project name is missing.
	ErrEmptyProjectName = errors.New("project name cannot be empty")

	// ErrEmptyCreatorID is returned when a job has no creator.
	ErrEmptyCreatorID = errors.New("creator ID cannot be empty")

	// ErrEmptyUserID is returned when a user ID is missing.
	ErrEmptyUserID = errors.New("user ID cannot be empty")

	// ErrEmptyUsername is returned when a username is missing.
	ErrEmptyUsername = errors.New("username cannot be empty")

	// ErrInvalidJobStatus is returned when a job status is not valid.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrInvalidProgress is returned when progress is outside [0, 100].
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")

	// ErrInvalidTransition is returned when a status change violates the
	// pending -> running -> terminal lifecycle.
	ErrInvalidTransition = errors.New("invalid job status transition")
)
