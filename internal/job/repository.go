package job

import (
	"context"
	"errors"
)

var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrStatusChanged is returned by SaveIf when the stored job no longer
	// has the expected status.
	ErrStatusChanged = errors.New("job status changed")
)

// Repository defines the interface for job persistence.
type Repository interface {
	// Save persists a job. An existing job with the same ID is replaced.
	Save(ctx context.Context, job *Job) error

	// SaveIf replaces the stored job only while its status is still expected.
	// Returns ErrStatusChanged otherwise, or ErrJobNotFound if it is gone.
	SaveIf(ctx context.Context, job *Job, expected Status) error

	// FindByID retrieves a job by its unique identifier.
	// Returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns all jobs, newest first.
	List(ctx context.Context) ([]*Job, error)

	// Delete removes a job from storage.
	// Returns ErrJobNotFound if the job does not exist.
	Delete(ctx context.Context, id string) error
}
