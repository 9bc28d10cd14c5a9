package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maauso/tts-arranger-api/internal/speech"
)

var canonical = strings.NewReplacer(
	"–", "-",
	"—", "-",
	"„", `"`,
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
)

// normalize canonicalizes each fragment, drops fragments without letters or
// digits and appends the sentence-final pause.
func (s *Segmenter) normalize(units []speech.Unit) []speech.Unit {
	result := make([]speech.Unit, 0, len(units)+len(units)/2)
	for _, u := range units {
		if u.IsPause() {
			result = append(result, u)
			continue
		}

		text := canonical.Replace(u.Text)
		text = collapseTrailing(text)
		text = strings.TrimSpace(text)
		text = strings.TrimLeftFunc(text, isPunct)
		text = strings.TrimSpace(text)

		if !speakable(text) {
			continue
		}
		if s.cfg.AppendFullStop {
			if r, _ := utf8.DecodeLastRuneInString(text); unicode.IsLetter(r) || unicode.IsDigit(r) {
				text += "."
			}
		}

		result = append(result, speech.NewUnit(text, u.SpeakerIndex, u.MinLengthMs))
		if pause := s.finalPause(text); pause > 0 {
			result = append(result, speech.Pause(pause))
		}
	}
	return result
}

func (s *Segmenter) finalPause(text string) int {
	r, _ := utf8.DecodeLastRuneInString(text)
	switch r {
	case '.', ':':
		return s.cfg.Pauses.Sentence
	case '!', '?':
		return s.cfg.Pauses.QuestionExclamation
	default:
		return 0
	}
}

// collapseTrailing keeps only the first rune of a trailing run of
// punctuation and whitespace.
func collapseTrailing(text string) string {
	end := len(text)
	first := -1
	for end > 0 {
		r, w := utf8.DecodeLastRuneInString(text[:end])
		if !isBoundary(r) {
			break
		}
		end -= w
		first = end
	}
	if first < 0 {
		return text
	}
	_, w := utf8.DecodeRuneInString(text[first:])
	return text[:first+w]
}

func speakable(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
