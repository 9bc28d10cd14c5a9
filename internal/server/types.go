// Package server provides the HTTP server for the TTS arranger API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"fmt"
	"time"

	"github.com/maauso/tts-arranger-api/internal/rules"
	"github.com/maauso/tts-arranger-api/internal/speech"
)

// CompileRequest is the HTTP request body for POST /compile and POST /jobs.
type CompileRequest struct {
	// Format is the source document format.
	Format string `json:"format" validate:"required,oneof=html htm xhtml text txt plain srt subrip"`
	// Content is the document text.
	Content string `json:"content" validate:"required"`
	// Title is the project title.
	Title string `json:"title" validate:"max=500"`
	// Author is the project author.
	Author string `json:"author" validate:"max=500"`
	// Language is a language tag such as en, en-US or de_DE.
	Language string `json:"language" validate:"omitempty,max=35"`
	// MaxPauseMs caps every pause. Zero uses the server default.
	MaxPauseMs int `json:"max_pause_ms" validate:"omitempty,min=1,max=60000"`
	// Rules are evaluated before every other rule.
	Rules []RuleRequest `json:"rules" validate:"omitempty,dive"`
	// RuleSources are rule files in S3 applied to this document only.
	RuleSources []string `json:"rule_sources" validate:"omitempty,max=16,dive,startswith=s3://"`
	// Voices maps speaker indexes to voice names in the response.
	Voices []string `json:"voices" validate:"omitempty,dive,required"`
	// Publish uploads the compiled project to S3 (jobs only).
	Publish bool `json:"publish"`
}

// RuleRequest is one rule in a CompileRequest.
type RuleRequest struct {
	// Conditions must all hold, or any of them for IGNORE rules.
	Conditions []ConditionRequest `json:"conditions" validate:"required,min=1,dive"`
	// SpeakerIndex selects the speaker for text inside matched elements.
	SpeakerIndex int `json:"speaker_index" validate:"min=0,max=1000"`
	// PauseAfterMs is the pause after matched elements.
	PauseAfterMs int `json:"pause_after_ms" validate:"min=0,max=60000"`
	// Signal is NONE, IGNORE or NEW_CHAPTER.
	Signal string `json:"signal" validate:"omitempty,oneof=NONE IGNORE NEW_CHAPTER"`
}

// ConditionRequest is one rule condition.
type ConditionRequest struct {
	// Kind is Name, Class or ID.
	Kind string `json:"kind" validate:"required"`
	// Arg is the tag name, class or id to match.
	Arg string `json:"arg" validate:"required"`
}

func (r RuleRequest) toRule() (rules.Rule, error) {
	signal, err := rules.ParseSignal(r.Signal)
	if err != nil {
		return rules.Rule{}, err
	}

	rule := rules.Rule{Signal: signal, Conditions: make([]rules.Condition, 0, len(r.Conditions))}
	for _, c := range r.Conditions {
		kind, err := rules.ParseConditionKind(c.Kind)
		if err != nil {
			return rules.Rule{}, err
		}
		rule.Conditions = append(rule.Conditions, rules.Condition{Kind: kind, Arg: c.Arg})
	}
	if signal != rules.SignalIgnore {
		rule.Properties = rules.Some(rules.Properties{SpeakerIndex: r.SpeakerIndex, PauseAfterMs: r.PauseAfterMs})
	}
	return rule, nil
}

func toRules(reqs []RuleRequest) ([]rules.Rule, error) {
	result := make([]rules.Rule, 0, len(reqs))
	for i, r := range reqs {
		rule, err := r.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		result = append(result, rule)
	}
	return result, nil
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// UnitResponse is one speech unit.
type UnitResponse struct {
	Text         string `json:"text,omitempty"`
	SpeakerIndex int    `json:"speaker_index"`
	Voice        string `json:"voice,omitempty"`
	MinLengthMs  int    `json:"min_length_ms"`
	Pause        bool   `json:"pause,omitempty"`
}

// ChapterResponse is one chapter of a compiled project.
type ChapterResponse struct {
	Title string         `json:"title"`
	Units []UnitResponse `json:"units"`
}

// ProjectResponse is a compiled project.
type ProjectResponse struct {
	Title    string            `json:"title"`
	Author   string            `json:"author,omitempty"`
	Language string            `json:"language"`
	Raw      bool              `json:"raw,omitempty"`
	Chapters []ChapterResponse `json:"chapters"`
}

func newProjectResponse(p *speech.Project, voices []string) *ProjectResponse {
	if p == nil {
		return nil
	}
	resp := &ProjectResponse{
		Title:    p.Title,
		Author:   p.Author,
		Language: p.Language,
		Raw:      p.Raw,
		Chapters: make([]ChapterResponse, 0, len(p.Chapters)),
	}
	for _, ch := range p.Chapters {
		cr := ChapterResponse{Title: ch.Title, Units: make([]UnitResponse, 0, len(ch.Units))}
		for _, u := range ch.Units {
			cr.Units = append(cr.Units, UnitResponse{
				Text:         u.Text,
				SpeakerIndex: u.SpeakerIndex,
				Voice:        speech.ResolveSpeaker(u.SpeakerIndex, voices),
				MinLengthMs:  u.MinLengthMs,
				Pause:        u.IsPause(),
			})
		}
		resp.Chapters = append(resp.Chapters, cr)
	}
	return resp
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Progress is the percentage of completion (0-100).
	Progress int `json:"progress"`
	// Error contains any error message if the job failed.
	Error string `json:"error,omitempty"`
	// Project is the compiled project (completed jobs only).
	Project *ProjectResponse `json:"project,omitempty"`
	// ProjectURL is the S3 URL of the project JSON (if publish=true and completed).
	ProjectURL string `json:"project_url,omitempty"`
	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobSummary is one entry of the job list.
type JobSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
}

// ListJobsResponse is the HTTP response for GET /jobs.
type ListJobsResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
