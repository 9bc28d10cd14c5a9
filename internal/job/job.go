// Package job provides the Job aggregate for document compilation jobs.
// It includes the Job entity with its state machine, the repository port
// and the service that runs the compiler for a job.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/tts-arranger-api/internal/job/id"
	"github.com/maauso/tts-arranger-api/internal/speech"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting to be processed.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the document is being compiled.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the compilation or publishing failed.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was cancelled before it finished.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents a document compilation job aggregate.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// Format is the source document format.
	Format string
	// Language is the requested document language.
	Language string
	// Voices maps speaker indexes to voice names in responses.
	Voices []string
	// Progress is the percentage of completion (0-100).
	Progress int
	// Error contains any error message if the job failed.
	Error string
	// Project is the compiled result. It is never modified after it is set.
	Project *speech.Project
	// ArtifactPath is the local path of the project JSON.
	ArtifactPath string
	// Publish indicates whether to upload the project JSON to S3.
	Publish bool
	// ProjectURL is the S3 URL if Publish was true.
	ProjectURL string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	if err := j.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	j.UpdateProgress(100)
	return nil
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// UpdateProgress sets the progress percentage (0-100).
func (j *Job) UpdateProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	j.UpdatedAt = time.Now()
}

// SetOutput records the compiled project, its artifact path and optional URL.
func (j *Job) SetOutput(project *speech.Project, artifactPath, projectURL string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Project = project
	j.ArtifactPath = artifactPath
	j.ProjectURL = projectURL
	j.UpdatedAt = time.Now()
}

// ClearOutput drops the compiled project and its locations.
func (j *Job) ClearOutput() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Project = nil
	j.ArtifactPath = ""
	j.ProjectURL = ""
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted ||
		j.Status == StatusFailed ||
		j.Status == StatusCancelled
}

// Clone creates a copy of the job for safe reads. The project is shared.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var voices []string
	if j.Voices != nil {
		voices = make([]string, len(j.Voices))
		copy(voices, j.Voices)
	}

	return &Job{
		ID:           j.ID,
		Status:       j.Status,
		Format:       j.Format,
		Language:     j.Language,
		Voices:       voices,
		Progress:     j.Progress,
		Error:        j.Error,
		Project:      j.Project,
		ArtifactPath: j.ArtifactPath,
		Publish:      j.Publish,
		ProjectURL:   j.ProjectURL,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}
