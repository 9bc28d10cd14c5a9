// Package reader turns source documents into unprocessed speech projects.
// Markup goes through the rule-driven converter, plain text is split into
// paragraphs and subtitles keep their cue timing.
package reader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maauso/tts-arranger-api/internal/markup"
	"github.com/maauso/tts-arranger-api/internal/rules"
	"github.com/maauso/tts-arranger-api/internal/speech"
)

// ErrUnknownFormat is returned for a document format without a reader.
var ErrUnknownFormat = errors.New("reader: unknown format")

// Format names a source document format.
type Format string

const (
	FormatHTML Format = "html"
	FormatText Format = "text"
	FormatSRT  Format = "srt"
)

// ParseFormat resolves a format name or common alias.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "html", "htm", "xhtml":
		return FormatHTML, nil
	case "text", "txt", "plain":
		return FormatText, nil
	case "srt", "subrip":
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Metadata is copied onto the project a reader produces.
type Metadata struct {
	Title    string
	Author   string
	Language string
}

func (m Metadata) apply(p *speech.Project) {
	p.Title = m.Title
	p.Author = m.Author
	if m.Language != "" {
		p.Language = m.Language
	}
}

// Reader converts one document into a project.
type Reader interface {
	Read(content string, meta Metadata) (*speech.Project, error)
}

// Options carries the settings of every reader. Each reader uses only the
// fields it needs.
type Options struct {
	Rules            *rules.Set
	Markup           markup.Options
	ParagraphPauseMs int
}

// New returns the reader for format.
func New(format Format, opts Options) (Reader, error) {
	switch format {
	case FormatHTML:
		return NewHTML(markup.NewConverter(opts.Rules, opts.Markup)), nil
	case FormatText:
		return NewText(opts.ParagraphPauseMs), nil
	case FormatSRT:
		return NewSRT(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
