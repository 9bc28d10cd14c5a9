package speech

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultTitleLength is the rune budget used by AssignTitles.
const DefaultTitleLength = 100

// Chapter is an ordered run of units with a title. StartTime and EndTime are
// filled in by the writer after synthesis.
type Chapter struct {
	Title     string        `json:"title"`
	Units     []Unit        `json:"units"`
	StartTime time.Duration `json:"start_time,omitempty"`
	EndTime   time.Duration `json:"end_time,omitempty"`
}

// HasContent reports whether the chapter contains at least one unit with
// speakable text. Pauses alone do not count.
func (c *Chapter) HasContent() bool {
	for _, u := range c.Units {
		if !u.IsBlank() {
			return true
		}
	}
	return false
}

// Project is the output of a compilation: chapters plus metadata the core
// carries through without interpreting.
type Project struct {
	Title    string     `json:"title"`
	Subtitle string     `json:"subtitle,omitempty"`
	Author   string     `json:"author,omitempty"`
	Date     time.Time  `json:"date,omitempty"`
	Language string     `json:"language"`
	Cover    []byte     `json:"cover,omitempty"`
	Chapters []*Chapter `json:"chapters"`
	// Raw projects carry timed units (subtitles) that must reach the writer
	// as read: no segmentation and no merging.
	Raw bool `json:"raw,omitempty"`
}

// NewProject creates an empty project for the given language.
func NewProject(language string) *Project {
	if language == "" {
		language = "en"
	}
	return &Project{Language: language, Chapters: make([]*Chapter, 0)}
}

// NewChapter appends an empty chapter and returns it.
func (p *Project) NewChapter() *Chapter {
	ch := &Chapter{Units: make([]Unit, 0)}
	p.Chapters = append(p.Chapters, ch)
	return ch
}

// CurrentChapter returns the last chapter, creating one if the project is empty.
func (p *Project) CurrentChapter() *Chapter {
	if len(p.Chapters) == 0 {
		return p.NewChapter()
	}
	return p.Chapters[len(p.Chapters)-1]
}

// Add appends units to the last chapter.
func (p *Project) Add(units ...Unit) {
	ch := p.CurrentChapter()
	ch.Units = append(ch.Units, units...)
}

// Merge appends the chapters of other to p.
func (p *Project) Merge(other *Project) {
	if other == nil {
		return
	}
	p.Chapters = append(p.Chapters, other.Chapters...)
}

// Optimize consolidates the units of every chapter.
func (p *Project) Optimize(maxPauseMs int) {
	for _, ch := range p.Chapters {
		ch.Units = Optimize(ch.Units, maxPauseMs)
	}
}

// RemoveEmptyChapters drops chapters without speakable text and returns the
// number removed.
func (p *Project) RemoveEmptyChapters() int {
	kept := p.Chapters[:0]
	for _, ch := range p.Chapters {
		if ch.HasContent() {
			kept = append(kept, ch)
		}
	}
	removed := len(p.Chapters) - len(kept)
	for i := len(kept); i < len(p.Chapters); i++ {
		p.Chapters[i] = nil
	}
	p.Chapters = kept
	return removed
}

// AssignTitles gives every untitled chapter the beginning of its first
// speakable unit, truncated to limit runes at a word boundary.
func (p *Project) AssignTitles(limit int) {
	if limit <= 0 {
		limit = DefaultTitleLength
	}
	for _, ch := range p.Chapters {
		if ch.Title != "" {
			continue
		}
		for _, u := range ch.Units {
			if !u.IsBlank() {
				ch.Title = Truncate(strings.TrimSpace(u.Text), limit)
				break
			}
		}
	}
}

// Truncate shortens s to at most limit runes without splitting a word and
// marks the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit+1])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	} else {
		cut = string(runes[:limit])
	}
	return cut + "…"
}
