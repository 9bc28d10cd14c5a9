// Package compiler runs the full compilation of a source document into a
// speech project: reading, consolidation, segmentation and cleanup.
package compiler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/tts-arranger-api/internal/markup"
	"github.com/maauso/tts-arranger-api/internal/reader"
	"github.com/maauso/tts-arranger-api/internal/rules"
	"github.com/maauso/tts-arranger-api/internal/segment"
	"github.com/maauso/tts-arranger-api/internal/speech"
)

const (
	// DefaultMaxPauseMs caps every pause of a compiled project.
	DefaultMaxPauseMs = 1500
	// DefaultLanguage is used for documents that do not name one.
	DefaultLanguage = "en"
)

// Document is one compilation request.
type Document struct {
	Format   reader.Format
	Content  string
	Title    string
	Author   string
	Language string
	// MaxPauseMs overrides the pipeline cap when positive.
	MaxPauseMs int
	// Rules are evaluated before everything else.
	Rules []rules.Rule
	// Overrides come from per-document rule sources and rank between Rules
	// and the library defaults.
	Overrides []rules.Rule
}

// Pipeline compiles documents. It is safe for concurrent use.
type Pipeline struct {
	tables          *segment.Tables
	defaults        []rules.Rule
	markup          markup.Options
	maxPauseMs      int
	defaultLanguage string
	appendFullStop  bool
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDefaultRules replaces the embedded default rules. Passing nil disables
// default rules altogether.
func WithDefaultRules(defaults []rules.Rule) Option {
	return func(p *Pipeline) {
		p.defaults = defaults
	}
}

// WithMarkupOptions sets the converter options used for HTML documents.
func WithMarkupOptions(opts markup.Options) Option {
	return func(p *Pipeline) {
		p.markup = opts
	}
}

// WithMaxPause sets the default pause cap in milliseconds.
func WithMaxPause(ms int) Option {
	return func(p *Pipeline) {
		if ms > 0 {
			p.maxPauseMs = ms
		}
	}
}

// WithDefaultLanguage sets the language of documents that do not name one.
func WithDefaultLanguage(lang string) Option {
	return func(p *Pipeline) {
		if lang != "" {
			p.defaultLanguage = lang
		}
	}
}

// WithAppendFullStop terminates every text fragment with a full stop.
func WithAppendFullStop(enabled bool) Option {
	return func(p *Pipeline) {
		p.appendFullStop = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Pipeline that segments with the given substitution tables.
func New(tables *segment.Tables, opts ...Option) *Pipeline {
	p := &Pipeline{
		tables:          tables,
		defaults:        rules.Defaults(),
		markup:          markup.DefaultOptions(),
		maxPauseMs:      DefaultMaxPauseMs,
		defaultLanguage: DefaultLanguage,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Compile turns doc into a project. Raw projects (subtitles) skip merging and
// segmentation; their units reach the caller as read.
func (p *Pipeline) Compile(ctx context.Context, doc Document) (*speech.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := rules.Compose(doc.Rules, doc.Overrides, p.defaults)
	r, err := reader.New(doc.Format, reader.Options{
		Rules:            set,
		Markup:           p.markup,
		ParagraphPauseMs: p.markup.DefaultPauseMs,
	})
	if err != nil {
		return nil, err
	}

	lang := doc.Language
	if lang == "" {
		lang = p.defaultLanguage
	}
	project, err := r.Read(doc.Content, reader.Metadata{Title: doc.Title, Author: doc.Author, Language: lang})
	if err != nil {
		return nil, fmt.Errorf("read %s document: %w", doc.Format, err)
	}

	if !project.Raw {
		if err := p.arrange(ctx, project, doc.MaxPauseMs); err != nil {
			return nil, err
		}
	}

	removed := project.RemoveEmptyChapters()
	project.AssignTitles(speech.DefaultTitleLength)

	p.logger.Debug("document compiled",
		slog.String("format", string(doc.Format)),
		slog.String("language", project.Language),
		slog.Int("rules", set.Len()),
		slog.Int("chapters", len(project.Chapters)),
		slog.Int("empty_chapters_removed", removed),
	)
	return project, nil
}

func (p *Pipeline) arrange(ctx context.Context, project *speech.Project, maxPauseMs int) error {
	if maxPauseMs <= 0 {
		maxPauseMs = p.maxPauseMs
	}

	cfg := segment.DefaultConfig()
	if p.tables != nil {
		cfg = p.tables.Config(project.Language)
	}
	cfg.AppendFullStop = p.appendFullStop
	seg := segment.New(cfg)

	// Same-speaker fragments are joined while their original whitespace is
	// still in place, so segmentation sees whole sentences.
	project.Optimize(0)
	for _, ch := range project.Chapters {
		if err := ctx.Err(); err != nil {
			return err
		}
		ch.Units = seg.SegmentAll(ch.Units)
	}
	project.Optimize(maxPauseMs)
	return nil
}
