package reader

import (
	"github.com/maauso/tts-arranger-api/internal/markup"
	"github.com/maauso/tts-arranger-api/internal/speech"
)

// HTML reads markup fragments.
type HTML struct {
	conv *markup.Converter
}

// NewHTML creates an HTML reader around conv.
func NewHTML(conv *markup.Converter) *HTML {
	return &HTML{conv: conv}
}

// Read converts content. Chapter titles are left to the caller.
func (r *HTML) Read(content string, meta Metadata) (*speech.Project, error) {
	p := r.conv.ConvertString(content)
	meta.apply(p)
	return p, nil
}
