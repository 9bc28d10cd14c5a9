// Package speech provides the instruction model handed to a synthesis engine:
// speech units grouped into chapters and projects, plus the consolidation
// pass that merges, strips and clamps unit lists.
package speech

import (
	"strings"
)

// PauseSentinel is the reserved speaker index that marks a unit as silence.
const PauseSentinel = -1

// Unit is a single synthesis instruction. It either asks for Text to be
// spoken by the speaker at SpeakerIndex, or for MinLengthMs of silence.
type Unit struct {
	// Text is the text to synthesize. Empty for pauses.
	Text string `json:"text"`
	// SpeakerIndex selects the speaker. PauseSentinel for pauses.
	SpeakerIndex int `json:"speaker_index"`
	// MinLengthMs is the minimum audio length. Synthesized text shorter than
	// this is padded with silence.
	MinLengthMs int `json:"min_length_ms"`
}

// NewUnit creates a unit and enforces the pause invariant: empty text with
// a positive length always carries PauseSentinel.
func NewUnit(text string, speakerIndex, minLengthMs int) Unit {
	if text == "" && minLengthMs > 0 {
		speakerIndex = PauseSentinel
	}
	return Unit{Text: text, SpeakerIndex: speakerIndex, MinLengthMs: minLengthMs}
}

// Pause creates a silence unit of the given length.
func Pause(ms int) Unit {
	return NewUnit("", PauseSentinel, ms)
}

// IsPause reports whether the unit is a valid pause marker.
func (u Unit) IsPause() bool {
	return u.Text == "" && u.MinLengthMs > 0 && u.SpeakerIndex == PauseSentinel
}

// IsBlank reports whether the unit carries no speakable text.
func (u Unit) IsBlank() bool {
	return strings.TrimSpace(u.Text) == ""
}

// sameSpeaker reports whether two units can be merged.
func (u Unit) sameSpeaker(other Unit) bool {
	return u.SpeakerIndex == other.SpeakerIndex
}

// ResolveSpeaker maps a speaker index onto a list of voice names, wrapping
// around when the index exceeds the list. Pauses and empty lists resolve to "".
func ResolveSpeaker(index int, voices []string) string {
	if index < 0 || len(voices) == 0 {
		return ""
	}
	return voices[index%len(voices)]
}
