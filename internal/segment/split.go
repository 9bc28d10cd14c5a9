package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maauso/tts-arranger-api/internal/speech"
)

const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// isPunct covers ASCII punctuation and symbols plus Unicode punctuation.
func isPunct(r rune) bool {
	if r < utf8.RuneSelf {
		return strings.ContainsRune(asciiPunct, r)
	}
	return unicode.IsPunct(r)
}

func isBoundary(r rune) bool {
	return isPunct(r) || unicode.IsSpace(r)
}

// boundaryBefore reports whether the rune ending at byte offset i is a
// boundary, or i is the start of text.
func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return isBoundary(r)
}

// boundaryAfter reports whether the rune starting at byte offset j is a
// boundary, or j is the end of text.
func boundaryAfter(text string, j int) bool {
	if j >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[j:])
	return isBoundary(r)
}

// splitSingle breaks text units at every match of sp.re. Each non-empty
// trimmed fragment is followed by a pause of sp.pause.
func splitSingle(units []speech.Unit, sp singleSplit) []speech.Unit {
	result := make([]speech.Unit, 0, len(units))
	for _, u := range units {
		if u.IsPause() {
			result = append(result, u)
			continue
		}

		text := u.Text
		last := 0
		for _, m := range sp.re.FindAllStringIndex(text, -1) {
			end := m[0]
			if sp.keep {
				end = m[1]
			}
			if frag := strings.TrimSpace(text[last:end]); frag != "" {
				result = append(result, speech.NewUnit(frag, u.SpeakerIndex, u.MinLengthMs))
				if sp.pause > 0 {
					result = append(result, speech.Pause(sp.pause))
				}
			}
			last = m[1]
		}

		if rest := strings.TrimSpace(text[last:]); rest != "" {
			result = append(result, speech.NewUnit(rest, u.SpeakerIndex, u.MinLengthMs))
		}
	}
	return result
}

// pairScan holds the state of one paired-delimiter scan over a single text
// unit.
type pairScan struct {
	sp     pairedSplit
	src    speech.Unit
	out    []speech.Unit
	start  int // index in out of the first unit produced from src
	last   int // index in out of the last text unit produced from src
	opened bool
	post   bool // a post pause is owed before the next text
	mark   checkpoint
}

// checkpoint is the scan state just before an opening delimiter was taken.
type checkpoint struct {
	outLen int
	pos    int
	last   int
	post   bool
}

// open records the state a later rollback returns to.
func (p *pairScan) open(pos int) {
	p.mark = checkpoint{outLen: len(p.out), pos: pos, last: p.last, post: p.post}
	p.opened = true
}

// rollback drops the split made at the pending opening delimiter and returns
// the offset the unsplit text starts at.
func (p *pairScan) rollback() int {
	p.out = p.out[:p.mark.outLen]
	p.last = p.mark.last
	p.post = p.mark.post
	p.opened = false
	return p.mark.pos
}

func (p *pairScan) pause(ms int) {
	if ms > 0 {
		p.out = append(p.out, speech.Pause(ms))
	}
}

func (p *pairScan) settle() {
	if p.post {
		p.pause(p.sp.post)
		p.post = false
	}
}

func (p *pairScan) flush(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	p.settle()
	p.out = append(p.out, speech.NewUnit(text, p.src.SpeakerIndex, p.src.MinLengthMs))
	p.last = len(p.out) - 1
}

func (p *pairScan) closeAt(text string) {
	p.settle()
	p.pause(p.sp.pre)
	p.flush(text)
	p.post = true
}

// splitPaired breaks text units around delimiter pairs. An opening
// delimiter counts only after a boundary, a closing one only before a
// boundary. The text before an opening delimiter is flushed as is; the
// enclosed text is flushed after a pre pause and followed by a post pause.
// An opening delimiter that is never closed, or is followed by another
// opening delimiter first, does not split: its text stays in one fragment.
// Punctuation directly after a split point is attached to the fragment
// flushed just before it.
func splitPaired(units []speech.Unit, sp pairedSplit) []speech.Unit {
	symmetric := sp.open == sp.close
	result := make([]speech.Unit, 0, len(units))

	for _, u := range units {
		if u.IsPause() {
			result = append(result, u)
			continue
		}

		p := &pairScan{sp: sp, src: u, out: result, start: len(result), last: -1}
		text := u.Text
		pos := 0

		for i := 0; i < len(text); {
			rest := text[i:]
			switch {
			case symmetric && !p.opened && strings.HasPrefix(rest, sp.open) && boundaryBefore(text, i):
				p.open(pos)
				p.flush(text[pos:i])
				pos = i + len(sp.open)
				i = pos
				continue
			case symmetric && p.opened && strings.HasPrefix(rest, sp.close) && boundaryAfter(text, i+len(sp.close)):
				p.closeAt(text[pos:i])
				p.opened = false
				pos = i + len(sp.close)
				i = pos
				continue
			case !symmetric && strings.HasPrefix(rest, sp.open) && boundaryBefore(text, i):
				if p.opened {
					pos = p.rollback()
				}
				p.open(pos)
				p.flush(text[pos:i])
				pos = i + len(sp.open)
				i = pos
				continue
			case !symmetric && strings.HasPrefix(rest, sp.close) && boundaryAfter(text, i+len(sp.close)):
				p.closeAt(text[pos:i])
				p.opened = false
				pos = i + len(sp.close)
				i = pos
				continue
			}

			r, w := utf8.DecodeRuneInString(rest)
			if !p.opened && pos == i && p.last >= p.start && strings.ContainsRune(".,;:", r) {
				p.out[p.last].Text += string(r)
				pos = i + w
			}
			i += w
		}

		if p.opened {
			pos = p.rollback()
		}
		p.flush(text[pos:])
		p.settle()
		result = p.out
	}
	return result
}
