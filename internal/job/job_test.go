package job

import (
	"strings"
	"testing"
	"time"

	"github.com/maauso/tts-arranger-api/internal/speech"
)

func TestNew(t *testing.T) {
	job := New()

	if !strings.HasPrefix(job.ID, "job-") {
		t.Errorf("expected job ID with prefix job-, got %q", job.ID)
	}
	if job.Status != StatusInQueue {
		t.Errorf("expected status %s, got %s", StatusInQueue, job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if job.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestNewWithID(t *testing.T) {
	id := "test-job-123"
	job := NewWithID(id)

	if job.ID != id {
		t.Errorf("expected ID %s, got %s", id, job.ID)
	}
	if job.Status != StatusInQueue {
		t.Errorf("expected status %s, got %s", StatusInQueue, job.Status)
	}
}

func TestJob_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		// Valid transitions from IN_QUEUE
		{"IN_QUEUE to RUNNING", StatusInQueue, StatusRunning, false},
		{"IN_QUEUE to CANCELLED", StatusInQueue, StatusCancelled, false},
		// Valid transitions from RUNNING
		{"RUNNING to COMPLETED", StatusRunning, StatusCompleted, false},
		{"RUNNING to FAILED", StatusRunning, StatusFailed, false},
		{"RUNNING to CANCELLED", StatusRunning, StatusCancelled, false},
		// Invalid transitions
		{"IN_QUEUE to COMPLETED", StatusInQueue, StatusCompleted, true},
		{"IN_QUEUE to FAILED", StatusInQueue, StatusFailed, true},
		{"RUNNING to IN_QUEUE", StatusRunning, StatusInQueue, true},
		{"COMPLETED to RUNNING", StatusCompleted, StatusRunning, true},
		{"FAILED to COMPLETED", StatusFailed, StatusCompleted, true},
		{"CANCELLED to RUNNING", StatusCancelled, StatusRunning, true},
		{"unknown status", Status("PAUSED"), StatusRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewWithID("test")
			job.Status = tt.from

			err := job.TransitionTo(tt.to)

			if tt.wantErr && err != ErrInvalidTransition {
				t.Errorf("expected ErrInvalidTransition for %s -> %s, got %v", tt.from, tt.to, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for transition %s -> %s: %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestJob_Start(t *testing.T) {
	job := New()
	beforeStart := time.Now()

	if err := job.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusRunning {
		t.Errorf("expected status %s, got %s", StatusRunning, job.Status)
	}
	if job.StartedAt.Before(beforeStart) {
		t.Error("expected StartedAt to be set after test start")
	}
}

func TestJob_Complete(t *testing.T) {
	job := New()
	_ = job.Start()

	if err := job.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusCompleted {
		t.Errorf("expected status %s, got %s", StatusCompleted, job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("expected progress 100, got %d", job.Progress)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
}

func TestJob_Complete_FromQueue(t *testing.T) {
	job := New()

	if err := job.Complete(); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if job.Progress != 0 {
		t.Errorf("expected progress 0, got %d", job.Progress)
	}
}

func TestJob_Fail(t *testing.T) {
	job := New()
	_ = job.Start()

	errMsg := "compile: reader: unknown format"
	if err := job.Fail(errMsg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusFailed {
		t.Errorf("expected status %s, got %s", StatusFailed, job.Status)
	}
	if job.Error != errMsg {
		t.Errorf("expected error %q, got %q", errMsg, job.Error)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set on failure")
	}
}

func TestJob_Cancel(t *testing.T) {
	job := New()

	if err := job.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusCancelled {
		t.Errorf("expected status %s, got %s", StatusCancelled, job.Status)
	}
}

func TestJob_CannotTransitionFromTerminalState(t *testing.T) {
	terminalStates := []Status{StatusCompleted, StatusFailed, StatusCancelled}
	allStates := []Status{StatusInQueue, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled}

	for _, terminal := range terminalStates {
		for _, target := range allStates {
			t.Run(string(terminal)+"_to_"+string(target), func(t *testing.T) {
				job := NewWithID("test")
				job.Status = terminal

				if err := job.TransitionTo(target); err == nil {
					t.Errorf("expected error when transitioning from %s to %s", terminal, target)
				}
			})
		}
	}
}

func TestJob_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusInQueue, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			job := NewWithID("test")
			job.Status = tt.status
			if got := job.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestJob_UpdateProgress(t *testing.T) {
	job := New()

	for _, tc := range []struct{ in, want int }{{50, 50}, {-10, 0}, {150, 100}} {
		job.UpdateProgress(tc.in)
		if job.Progress != tc.want {
			t.Errorf("UpdateProgress(%d): expected %d, got %d", tc.in, tc.want, job.Progress)
		}
	}
}

func TestJob_SetOutput(t *testing.T) {
	job := New()
	project := speech.NewProject("en")

	job.SetOutput(project, "/data/job.json", "https://bucket.s3.us-east-1.amazonaws.com/projects/job.json")

	if job.Project != project {
		t.Error("expected project to be set")
	}
	if job.ArtifactPath != "/data/job.json" {
		t.Errorf("expected ArtifactPath /data/job.json, got %s", job.ArtifactPath)
	}
	if job.ProjectURL == "" {
		t.Error("expected ProjectURL to be set")
	}

	job.ClearOutput()
	if job.Project != nil || job.ArtifactPath != "" || job.ProjectURL != "" {
		t.Error("expected output to be cleared")
	}
}

func TestJob_Clone(t *testing.T) {
	job := New()
	job.Status = StatusRunning
	job.Progress = 50
	job.Voices = []string{"anna", "ben"}
	job.Project = speech.NewProject("de")

	clone := job.Clone()

	// Verify clone has same values
	if clone.ID != job.ID {
		t.Errorf("expected ID %s, got %s", job.ID, clone.ID)
	}
	if clone.Status != job.Status {
		t.Errorf("expected Status %s, got %s", job.Status, clone.Status)
	}
	if clone.Progress != job.Progress {
		t.Errorf("expected Progress %d, got %d", job.Progress, clone.Progress)
	}
	if clone.Project != job.Project {
		t.Error("expected project to be shared")
	}

	// Verify clone is independent
	clone.Status = StatusCompleted
	if job.Status == StatusCompleted {
		t.Error("modifying clone should not affect original")
	}

	clone.Voices[0] = "carl"
	if job.Voices[0] != "anna" {
		t.Error("modifying clone voices should not affect original")
	}
}

func TestJob_GetStatus_ThreadSafe(t *testing.T) {
	job := New()

	done := make(chan bool)
	go func() {
		for i := 0; i < 100; i++ {
			_ = job.GetStatus()
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = job.Start()
		}
		done <- true
	}()

	<-done
	<-done
	// If no race conditions, test passes
}
