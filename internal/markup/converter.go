// Package markup turns markup fragments into speech projects. The Converter
// walks element-open, text and element-close events in source order and
// keeps a stack of context frames so that nested elements inherit speaker
// and signal from their parents.
package markup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/maauso/tts-arranger-api/internal/rules"
	"github.com/maauso/tts-arranger-api/internal/speech"
)

// DefaultPauseMs is the baseline pause applied to elements without a rule.
const DefaultPauseMs = 250

// Options configures a Converter.
type Options struct {
	// DefaultPauseMs is the pause after unmatched block elements and the
	// pause of the root context.
	DefaultPauseMs int
	// IgnorableTags never contribute text, regardless of rules.
	IgnorableTags []string
	// InlineTags never produce a trailing pause unless a rule matches them.
	InlineTags []string
}

// DefaultOptions returns the stock converter settings.
func DefaultOptions() Options {
	return Options{
		DefaultPauseMs: DefaultPauseMs,
		IgnorableTags:  []string{"script", "style", "meta"},
		InlineTags:     []string{"span", "i", "b", "u", "a", "em"},
	}
}

// voidElements have no closing tag in HTML.
var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {}, "img": {},
	"input": {}, "link": {}, "meta": {}, "param": {}, "source": {}, "track": {}, "wbr": {},
}

// Converter applies a rule set to markup. It holds no per-document state
// and may be shared between goroutines.
type Converter struct {
	rules     *rules.Set
	pauseMs   int
	ignorable map[string]struct{}
	inline    map[string]struct{}
}

// NewConverter creates a Converter for the given rule set.
func NewConverter(set *rules.Set, opts Options) *Converter {
	if opts.DefaultPauseMs < 0 {
		opts.DefaultPauseMs = 0
	}
	return &Converter{
		rules:     set,
		pauseMs:   opts.DefaultPauseMs,
		ignorable: toSet(opts.IgnorableTags),
		inline:    toSet(opts.InlineTags),
	}
}

func toSet(names []string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = struct{}{}
	}
	return m
}

// ConvertString converts a markup fragment held in memory.
func (c *Converter) ConvertString(fragment string) *speech.Project {
	project := speech.NewProject("")
	// A strings.Reader never fails.
	_ = c.ConvertInto(project, strings.NewReader(fragment), true)
	return project
}

// Convert reads a markup fragment and returns a new project.
func (c *Converter) Convert(r io.Reader) (*speech.Project, error) {
	project := speech.NewProject("")
	if err := c.ConvertInto(project, r, true); err != nil {
		return nil, err
	}
	return project, nil
}

// ConvertInto appends the converted fragment to project. When newChapter is
// set the fragment starts in a fresh chapter, otherwise it continues the
// project's last chapter.
func (c *Converter) ConvertInto(project *speech.Project, r io.Reader, newChapter bool) error {
	w := &walker{
		conv:    c,
		project: project,
		stack: []frame{{
			signal: rules.SignalNone,
			props:  rules.Some(rules.Properties{SpeakerIndex: 0, PauseAfterMs: c.pauseMs}),
		}},
	}
	if newChapter {
		project.NewChapter()
	}

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			err := z.Err()
			w.finish()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("tokenize markup: %w", err)
		case html.StartTagToken:
			tok := z.Token()
			w.open(tok)
			if _, ok := voidElements[tok.Data]; ok {
				w.close(tok.Data)
			}
		case html.SelfClosingTagToken:
			tok := z.Token()
			w.open(tok)
			w.close(tok.Data)
		case html.EndTagToken:
			tok := z.Token()
			if _, ok := voidElements[tok.Data]; ok {
				continue
			}
			w.close(tok.Data)
		case html.TextToken:
			w.data(string(z.Text()))
		}
	}
}

// frame is the context active for text inside one element.
type frame struct {
	matched bool
	signal  rules.Signal
	props   rules.OptionalProperties
	// chapter identifies the NEW_CHAPTER element occurrence this frame
	// belongs to. Inheriting frames share it.
	chapter int
}

type walker struct {
	conv    *Converter
	project *speech.Project
	stack   []frame

	chapters      int
	activeChapter int
}

func (w *walker) top() frame {
	return w.stack[len(w.stack)-1]
}

func (w *walker) open(tok html.Token) {
	parent := w.top()
	name := tok.Data

	var f frame
	if _, ok := w.conv.ignorable[name]; ok {
		f = frame{matched: true, signal: rules.SignalIgnore}
		w.stack = append(w.stack, f)
		return
	}

	res := w.conv.rules.Evaluate(rules.NewElement(name, attrMap(tok.Attr)))
	if res.Matched {
		f = frame{matched: true, signal: res.Signal, props: res.Properties}
		if res.Signal == rules.SignalNewChapter {
			w.chapters++
			f.chapter = w.chapters
		}
	} else {
		f = frame{signal: parent.signal, props: parent.props, chapter: parent.chapter}
		if f.props.Valid {
			f.props.Value.PauseAfterMs = w.conv.pauseMs
		}
	}

	if f.props.Valid && parent.props.Valid && f.props.Value.SpeakerIndex < parent.props.Value.SpeakerIndex {
		f.props.Value.SpeakerIndex = parent.props.Value.SpeakerIndex
	}

	w.stack = append(w.stack, f)
}

func (w *walker) data(text string) {
	if text == "" {
		return
	}
	f := w.top()
	switch f.signal {
	case rules.SignalIgnore:
		return
	case rules.SignalNewChapter:
		if f.chapter != w.activeChapter {
			w.project.NewChapter()
			w.activeChapter = f.chapter
		}
	}
	if f.props.Valid {
		w.project.Add(speech.NewUnit(text, f.props.Value.SpeakerIndex, 0))
	}
}

func (w *walker) close(name string) {
	// Stray end tags never pop the root context.
	if len(w.stack) == 1 {
		return
	}
	f := w.top()
	w.stack = w.stack[:len(w.stack)-1]

	if f.signal == rules.SignalIgnore {
		return
	}
	if !f.matched {
		if _, ok := w.conv.inline[name]; ok {
			return
		}
	}
	if f.props.Valid && f.props.Value.PauseAfterMs > 0 {
		w.project.Add(speech.Pause(f.props.Value.PauseAfterMs))
	}
}

// finish drops units with empty text that are not pause markers.
// Whitespace-only text is kept so that merged neighbours stay separated.
func (w *walker) finish() {
	for _, ch := range w.project.Chapters {
		kept := ch.Units[:0]
		for _, u := range ch.Units {
			if u.Text != "" || u.IsPause() {
				kept = append(kept, u)
			}
		}
		ch.Units = kept
	}
}

func attrMap(attrs []html.Attribute) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if _, seen := m[a.Key]; !seen {
			m[a.Key] = a.Val
		}
	}
	return m
}
