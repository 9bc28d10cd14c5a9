// Package segment splits text units into short prosodic fragments and
// infers the pauses between them from punctuation and paired delimiters.
//
// A Segmenter is immutable once built. Per-language substitution tables are
// passed in through Config; nothing is read from process-wide state.
package segment

import (
	"regexp"

	"github.com/maauso/tts-arranger-api/internal/speech"
)

// DefaultMaxCodePoint is the first code point that is no longer considered
// speakable. Everything from the CJK symbols block upward is dropped.
const DefaultMaxCodePoint = 0x3000

// Pauses holds the pause lengths, in milliseconds, inserted at split points.
type Pauses struct {
	Sentence            int `toml:"sentence"`
	QuestionExclamation int `toml:"question_exclamation"`
	Parentheses         int `toml:"parentheses"`
	Dash                int `toml:"dash"`
	Newline             int `toml:"newline"`
	Colon               int `toml:"colon"`
	Emphasis            int `toml:"emphasis"`
}

// DefaultPauses returns the stock pause lengths.
func DefaultPauses() Pauses {
	return Pauses{
		Sentence:            750,
		QuestionExclamation: 1000,
		Parentheses:         300,
		Dash:                300,
		Newline:             250,
		Colon:               150,
		Emphasis:            100,
	}
}

// Config configures a Segmenter.
type Config struct {
	Pauses Pauses
	// MaxCodePoint drops every rune >= MaxCodePoint. Zero means
	// DefaultMaxCodePoint.
	MaxCodePoint rune
	// Substitutions are applied in order after code-point filtering.
	Substitutions []Substitution
	// AppendFullStop terminates fragments ending in a letter or digit with a
	// full stop. Some synthesis models need it to end an utterance cleanly.
	AppendFullStop bool
}

// DefaultConfig returns a configuration without substitutions.
func DefaultConfig() Config {
	return Config{Pauses: DefaultPauses(), MaxCodePoint: DefaultMaxCodePoint}
}

type singleSplit struct {
	re    *regexp.Regexp
	keep  bool
	pause int
}

type pairedSplit struct {
	open, close string
	pre, post   int
}

// Segmenter turns one text unit into an ordered list of text and pause units.
type Segmenter struct {
	cfg    Config
	single []singleSplit
	paired []pairedSplit
}

var (
	newlineRe = regexp.MustCompile(`\n`)
	clauseRe  = regexp.MustCompile(`[;:]\s`)
	dashRe    = regexp.MustCompile(`[—–]`)
)

// New creates a Segmenter.
func New(cfg Config) *Segmenter {
	if cfg.MaxCodePoint <= 0 {
		cfg.MaxCodePoint = DefaultMaxCodePoint
	}
	p := cfg.Pauses
	return &Segmenter{
		cfg: cfg,
		single: []singleSplit{
			{re: newlineRe, pause: p.Newline},
			{re: clauseRe, pause: p.Colon},
			{re: dashRe, pause: p.Dash},
		},
		paired: []pairedSplit{
			{open: "(", close: ")", pre: p.Parentheses, post: p.Parentheses},
			{open: "—", close: "—", pre: p.Parentheses, post: p.Parentheses},
			{open: "– ", close: " –", pre: p.Parentheses, post: p.Parentheses},
			{open: "*", close: "*", pre: p.Emphasis, post: p.Emphasis},
		},
	}
}

// Segment splits u. Pause units are returned unchanged.
func (s *Segmenter) Segment(u speech.Unit) []speech.Unit {
	if u.IsPause() {
		return []speech.Unit{u}
	}

	u.Text = s.sanitize(u.Text)
	units := []speech.Unit{u}

	for _, sp := range s.single {
		units = splitSingle(units, sp)
	}
	for _, sp := range s.paired {
		units = splitPaired(units, sp)
	}

	return s.normalize(units)
}

// SegmentAll segments every unit in order and concatenates the results.
func (s *Segmenter) SegmentAll(units []speech.Unit) []speech.Unit {
	result := make([]speech.Unit, 0, len(units))
	for _, u := range units {
		result = append(result, s.Segment(u)...)
	}
	return result
}
