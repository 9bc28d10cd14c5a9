package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/tts-arranger-api/internal/compiler"
	"github.com/maauso/tts-arranger-api/internal/rules"
	"github.com/maauso/tts-arranger-api/internal/speech"
	"github.com/maauso/tts-arranger-api/internal/storage"
)

// Compiler compiles one document.
type Compiler interface {
	Compile(ctx context.Context, doc compiler.Document) (*speech.Project, error)
}

// RuleLoader reads rule sources.
type RuleLoader interface {
	Load(ctx context.Context, locations []string) ([]rules.Rule, error)
}

// CompileInput contains the parameters of one compilation.
type CompileInput struct {
	// Document is the source document with its explicit rules.
	Document compiler.Document
	// RuleSources are per-document rule files. Their rules rank before the
	// configured rule files.
	RuleSources []string
	// Voices maps speaker indexes to voice names in responses.
	Voices []string
	// Publish indicates whether to upload the compiled project to S3.
	Publish bool
}

// CompileService runs compilations, either directly or as tracked jobs.
type CompileService struct {
	repo     Repository
	compiler Compiler
	store    storage.Storage
	loader   RuleLoader
	// configured holds the rules of the process-wide rule files.
	configured []rules.Rule
	logger     *slog.Logger
}

// ServiceOption configures a CompileService.
type ServiceOption func(*CompileService)

// WithRuleLoader sets the loader used for per-document rule sources.
func WithRuleLoader(loader RuleLoader) ServiceOption {
	return func(s *CompileService) {
		s.loader = loader
	}
}

// WithConfiguredRules sets rules that apply to every document, ranked after
// per-document sources and before the library defaults.
func WithConfiguredRules(r []rules.Rule) ServiceOption {
	return func(s *CompileService) {
		s.configured = r
	}
}

// NewCompileService creates a new CompileService.
func NewCompileService(repo Repository, c Compiler, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *CompileService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CompileService{
		repo:     repo,
		compiler: c,
		store:    store,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile compiles a document synchronously without creating a job.
func (s *CompileService) Compile(ctx context.Context, input CompileInput) (*speech.Project, error) {
	doc := input.Document

	overrides, err := s.overrides(ctx, input.RuleSources)
	if err != nil {
		return nil, err
	}
	doc.Overrides = append(append([]rules.Rule{}, doc.Overrides...), overrides...)

	return s.compiler.Compile(ctx, doc)
}

func (s *CompileService) overrides(ctx context.Context, sources []string) ([]rules.Rule, error) {
	result := make([]rules.Rule, 0, len(s.configured))
	if len(sources) > 0 && s.loader != nil {
		loaded, err := s.loader.Load(ctx, sources)
		if err != nil {
			return nil, fmt.Errorf("load rule sources: %w", err)
		}
		result = append(result, loaded...)
	}
	return append(result, s.configured...), nil
}

// CreateJob creates a new job and persists it to the repository.
// The job is created in IN_QUEUE status, ready for processing.
func (s *CompileService) CreateJob(ctx context.Context, input CompileInput) (*Job, error) {
	job := New()
	job.Format = string(input.Document.Format)
	job.Language = input.Document.Language
	job.Voices = input.Voices
	job.Publish = input.Publish

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.String("format", job.Format),
		slog.Int("content_bytes", len(input.Document.Content)),
		slog.Bool("publish", input.Publish),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return job, nil
}

// ProcessExistingJob compiles the document of a queued job, stores the
// project JSON under the data directory and optionally publishes it.
// A job cancelled while it runs keeps its CANCELLED status and the result
// is discarded.
func (s *CompileService) ProcessExistingJob(ctx context.Context, jobID string, input CompileInput) (*Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := job.Start(); err != nil {
		return nil, fmt.Errorf("start job %s: %w", jobID, err)
	}
	if err := s.repo.SaveIf(ctx, job, StatusInQueue); err != nil {
		return nil, fmt.Errorf("start job %s: %w", jobID, err)
	}

	project, err := s.Compile(ctx, input)
	if err != nil {
		return s.fail(ctx, job, fmt.Errorf("compile: %w", err))
	}
	job.UpdateProgress(50)

	data, err := json.Marshal(project)
	if err != nil {
		return s.fail(ctx, job, fmt.Errorf("encode project: %w", err))
	}

	artifact, err := s.store.Save(ctx, job.ID+".json", bytes.NewReader(data))
	if err != nil {
		return s.fail(ctx, job, fmt.Errorf("save project: %w", err))
	}
	job.UpdateProgress(75)

	var url string
	if input.Publish {
		url, err = s.store.Publish(ctx, "projects/"+job.ID+".json", bytes.NewReader(data))
		if err != nil {
			_ = s.store.Remove(ctx, []string{artifact})
			return s.fail(ctx, job, fmt.Errorf("publish project: %w", err))
		}
	}

	job.SetOutput(project, artifact, url)
	if err := job.Complete(); err != nil {
		return nil, fmt.Errorf("complete job %s: %w", jobID, err)
	}
	if err := s.repo.SaveIf(ctx, job, StatusRunning); err != nil {
		_ = s.store.Remove(ctx, []string{artifact})
		return s.superseded(ctx, jobID, err)
	}

	s.logger.Info("job completed",
		slog.String("job_id", job.ID),
		slog.Int("chapters", len(project.Chapters)),
		slog.String("artifact", artifact),
		slog.String("project_url", url),
	)
	return job, nil
}

func (s *CompileService) fail(ctx context.Context, job *Job, cause error) (*Job, error) {
	s.logger.Error("job failed",
		slog.String("job_id", job.ID),
		slog.String("error", cause.Error()),
	)
	if err := job.Fail(cause.Error()); err != nil {
		return nil, errors.Join(cause, err)
	}
	if err := s.repo.SaveIf(ctx, job, StatusRunning); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return s.superseded(ctx, job.ID, err)
		}
		return nil, errors.Join(cause, err)
	}
	return job, cause
}

// superseded handles a final save that lost against a concurrent status
// change. A job cancelled meanwhile stays cancelled and its result is
// dropped.
func (s *CompileService) superseded(ctx context.Context, jobID string, saveErr error) (*Job, error) {
	if !errors.Is(saveErr, ErrStatusChanged) {
		return nil, saveErr
	}
	latest, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job changed while running, discarding result",
		slog.String("job_id", jobID),
		slog.String("status", string(latest.GetStatus())),
	)
	return latest, nil
}

// GetJob retrieves a job by ID.
func (s *CompileService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs, newest first.
func (s *CompileService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// CancelJob cancels a job that has not finished yet.
func (s *CompileService) CancelJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := job.GetStatus()
	if err := job.Cancel(); err != nil {
		return nil, fmt.Errorf("cancel job %s: %w", id, err)
	}
	if err := s.repo.SaveIf(ctx, job, previous); err != nil {
		return nil, fmt.Errorf("cancel job %s: %w", id, err)
	}
	s.logger.Info("job cancelled", slog.String("job_id", id))
	return job, nil
}

// DeleteJob removes a finished job and its local artifact.
// Jobs that are still queued or running are cancelled first.
func (s *CompileService) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !job.IsTerminal() {
		if _, err := s.CancelJob(ctx, id); err != nil {
			if !errors.Is(err, ErrStatusChanged) && !errors.Is(err, ErrInvalidTransition) {
				return err
			}
			// Finished meanwhile; pick up its artifact.
			if job, err = s.repo.FindByID(ctx, id); err != nil {
				return err
			}
		}
	}

	if job.ArtifactPath != "" {
		if err := s.store.Remove(ctx, []string{job.ArtifactPath}); err != nil {
			s.logger.Warn("failed to remove artifact",
				slog.String("job_id", id),
				slog.String("path", job.ArtifactPath),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.repo.Delete(ctx, id)
}
