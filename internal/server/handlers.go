package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/tts-arranger-api/internal/compiler"
	"github.com/maauso/tts-arranger-api/internal/job"
	"github.com/maauso/tts-arranger-api/internal/job/id"
	"github.com/maauso/tts-arranger-api/internal/reader"
	"github.com/maauso/tts-arranger-api/internal/rules"
	"github.com/maauso/tts-arranger-api/internal/speech"
)

// Service is the use case layer behind the handlers.
type Service interface {
	Compile(ctx context.Context, input job.CompileInput) (*speech.Project, error)
	CreateJob(ctx context.Context, input job.CompileInput) (*job.Job, error)
	ProcessExistingJob(ctx context.Context, jobID string, input job.CompileInput) (*job.Job, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	ListJobs(ctx context.Context) ([]*job.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            Service
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateJob only creates the job and returns immediately
// without starting background processing.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Compile handles POST /compile requests. The project is compiled within
// the request and returned directly.
func (h *Handlers) Compile(w http.ResponseWriter, r *http.Request) {
	input, req, ok := h.decodeCompileRequest(w, r)
	if !ok {
		return
	}
	if req.Publish {
		writeError(w, http.StatusBadRequest, "publish is only supported for jobs", "VALIDATION_ERROR")
		return
	}

	project, err := h.service.Compile(r.Context(), input)
	if err != nil {
		h.writeCompileError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newProjectResponse(project, req.Voices))
}

// CreateJob handles POST /jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	input, req, ok := h.decodeCompileRequest(w, r)
	if !ok {
		return
	}

	// Create job first (synchronously)
	createdJob, err := h.service.CreateJob(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// Start processing in background with a detached context
	// Use context.WithoutCancel to prevent cancellation when the request ends
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string, inp job.CompileInput) {
			_, processErr := h.service.ProcessExistingJob(ctx, jobID, inp)
			if processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob.ID, input)
	}

	h.logger.Info("job created",
		slog.String("job_id", createdJob.ID),
		slog.String("format", req.Format),
		slog.Bool("publish", req.Publish),
	)

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     createdJob.ID,
		Status: string(createdJob.Status),
	})
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobSummary, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, JobSummary{
			ID:        j.ID,
			Status:    string(j.Status),
			Format:    j.Format,
			CreatedAt: j.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r)
	if !ok {
		return
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	resp := JobResponse{
		ID:        foundJob.ID,
		Status:    string(foundJob.Status),
		Progress:  foundJob.Progress,
		Error:     foundJob.Error,
		CreatedAt: foundJob.CreatedAt,
	}
	if !foundJob.CompletedAt.IsZero() {
		completed := foundJob.CompletedAt
		resp.CompletedAt = &completed
	}

	// Include the project if completed
	if foundJob.Status == job.StatusCompleted {
		resp.Project = newProjectResponse(foundJob.Project, foundJob.Voices)
		resp.ProjectURL = foundJob.ProjectURL
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteJob handles DELETE /jobs/{id} requests.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to delete job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete job", "JOB_DELETE_FAILED")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func jobIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return "", false
	}
	if !id.Valid(jobID) {
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return "", false
	}
	return jobID, true
}

// decodeCompileRequest reads and validates the body. On failure it writes
// the error response and returns false.
func (h *Handlers) decodeCompileRequest(w http.ResponseWriter, r *http.Request) (job.CompileInput, CompileRequest, bool) {
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "BODY_TOO_LARGE")
			return job.CompileInput{}, req, false
		}
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return job.CompileInput{}, req, false
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return job.CompileInput{}, req, false
	}

	format, err := reader.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return job.CompileInput{}, req, false
	}
	explicit, err := toRules(req.Rules)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_RULE")
		return job.CompileInput{}, req, false
	}

	input := job.CompileInput{
		Document: compiler.Document{
			Format:     format,
			Content:    req.Content,
			Title:      req.Title,
			Author:     req.Author,
			Language:   req.Language,
			MaxPauseMs: req.MaxPauseMs,
			Rules:      explicit,
		},
		RuleSources: req.RuleSources,
		Voices:      req.Voices,
		Publish:     req.Publish,
	}
	return input, req, true
}

func (h *Handlers) writeCompileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reader.ErrUnknownFormat),
		errors.Is(err, reader.ErrMalformedSubtitle),
		errors.Is(err, rules.ErrUnknownCondition),
		errors.Is(err, rules.ErrUnknownSignal):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "COMPILE_FAILED")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "compilation interrupted", "COMPILE_INTERRUPTED")
	default:
		h.logger.Error("compilation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "compilation failed", "COMPILE_FAILED")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
