package reader

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/tts-arranger-api/internal/speech"
)

// ErrMalformedSubtitle is returned for a cue without a valid timing line.
var ErrMalformedSubtitle = errors.New("reader: malformed subtitle")

var cueMarkup = regexp.MustCompile(`<[^<]+?>`)

// Cue is one timed subtitle entry.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// SRT reads SubRip subtitles. Every cue becomes a pause covering the gap
// since the previous cue followed by a text unit whose minimum length is the
// cue duration. The result is a raw project.
type SRT struct{}

// NewSRT creates a SubRip reader.
func NewSRT() *SRT { return &SRT{} }

// Read parses content into a single raw chapter.
func (r *SRT) Read(content string, meta Metadata) (*speech.Project, error) {
	cues, err := ParseSRT(content)
	if err != nil {
		return nil, err
	}

	p := speech.NewProject("")
	meta.apply(p)
	p.Raw = true

	ch := p.NewChapter()
	var lastEnd time.Duration
	for _, c := range cues {
		if gap := (c.Start - lastEnd).Milliseconds(); gap > 0 {
			ch.Units = append(ch.Units, speech.Pause(int(gap)))
		}
		ch.Units = append(ch.Units, speech.NewUnit(c.Text, 0, int((c.End-c.Start).Milliseconds())))
		lastEnd = c.End
	}
	return p, nil
}

// ParseSRT splits content into cues. Markup inside cue text is removed and
// line breaks become spaces.
func ParseSRT(content string) ([]Cue, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	var cues []Cue
	for n, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(strings.Trim(block, "\n"), "\n")

		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			return nil, fmt.Errorf("%w: block %d has no timing line", ErrMalformedSubtitle, n+1)
		}

		parts := strings.SplitN(lines[timing], "-->", 2)
		start, err := parseSRTTimestamp(parts[0])
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %v", ErrMalformedSubtitle, n+1, err)
		}
		// Position hints such as "X1:40" may follow the end time.
		endField := strings.Fields(parts[1])
		if len(endField) == 0 {
			return nil, fmt.Errorf("%w: block %d: missing end time", ErrMalformedSubtitle, n+1)
		}
		end, err := parseSRTTimestamp(endField[0])
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %v", ErrMalformedSubtitle, n+1, err)
		}
		if end < start {
			end = start
		}

		text := strings.Join(lines[timing+1:], "\n")
		text = cueMarkup.ReplaceAllString(text, "")
		text = strings.ReplaceAll(text, "\n", " ")

		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}
	return cues, nil
}

func parseSRTTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}
