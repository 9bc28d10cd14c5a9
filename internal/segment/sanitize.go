package segment

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// sanitize composes the text, drops unspeakable runes and applies the
// substitution table.
func (s *Segmenter) sanitize(text string) string {
	text = norm.NFC.String(text)

	text = strings.Map(func(r rune) rune {
		if r >= s.cfg.MaxCodePoint {
			return -1
		}
		return r
	}, text)

	for _, sub := range s.cfg.Substitutions {
		text = sub.Apply(text)
	}
	return text
}
