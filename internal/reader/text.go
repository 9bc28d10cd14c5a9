package reader

import (
	"strings"

	"github.com/maauso/tts-arranger-api/internal/speech"
)

// Text reads plain text. Paragraphs are separated by a blank line and read
// by the first speaker, one chapter per document.
type Text struct {
	pauseMs int
}

// NewText creates a text reader that separates paragraphs with a pause of
// pauseMs. Zero means no pause.
func NewText(pauseMs int) *Text {
	if pauseMs < 0 {
		pauseMs = 0
	}
	return &Text{pauseMs: pauseMs}
}

// Read splits content into paragraph units.
func (r *Text) Read(content string, meta Metadata) (*speech.Project, error) {
	p := speech.NewProject("")
	meta.apply(p)

	content = strings.ReplaceAll(content, "\r\n", "\n")
	ch := p.NewChapter()
	for _, para := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		if len(ch.Units) > 0 && r.pauseMs > 0 {
			ch.Units = append(ch.Units, speech.Pause(r.pauseMs))
		}
		ch.Units = append(ch.Units, speech.NewUnit(para, 0, 0))
	}

	if len(ch.Units) > 0 {
		ch.Title = speech.Truncate(strings.Join(strings.Fields(ch.Units[0].Text), " "), speech.DefaultTitleLength)
	}
	return p, nil
}
