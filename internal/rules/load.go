package rules

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed defaults.json
var defaultRules []byte

// Format is the encoding of a rule document.
type Format string

const (
	// FormatJSON is the original check_entries JSON layout.
	FormatJSON Format = "json"
	// FormatTOML is the same layout expressed as TOML arrays of tables.
	FormatTOML Format = "toml"
)

// FormatFromLocation guesses the document format from a file name or URI.
func FormatFromLocation(location string) Format {
	if strings.EqualFold(path.Ext(location), ".toml") {
		return FormatTOML
	}
	return FormatJSON
}

type document struct {
	CheckEntries []entry `json:"check_entries" toml:"check_entries"`
}

type entry struct {
	Conditions []conditionEntry `json:"conditions" toml:"conditions"`
	Properties *propertiesEntry `json:"properties" toml:"properties"`
	Signal     string           `json:"signal" toml:"signal"`
}

type conditionEntry struct {
	Name string `json:"name" toml:"name"`
	Arg  string `json:"arg" toml:"arg"`
}

// propertiesEntry accepts the current camelCase keys and the legacy
// snake_case keys of older rule files.
type propertiesEntry struct {
	SpeakerIndex *int `json:"speakerIndex" toml:"speakerIndex"`
	PauseAfterMs *int `json:"pauseAfterMs" toml:"pauseAfterMs"`
	SpeakerIdx   *int `json:"speaker_idx" toml:"speaker_idx"`
	PauseAfter   *int `json:"pause_after" toml:"pause_after"`
}

func (p *propertiesEntry) resolve() Properties {
	var props Properties
	if p == nil {
		return props
	}
	switch {
	case p.SpeakerIndex != nil:
		props.SpeakerIndex = *p.SpeakerIndex
	case p.SpeakerIdx != nil:
		props.SpeakerIndex = *p.SpeakerIdx
	}
	switch {
	case p.PauseAfterMs != nil:
		props.PauseAfterMs = *p.PauseAfterMs
	case p.PauseAfter != nil:
		props.PauseAfterMs = *p.PauseAfter
	}
	return props
}

// Decode parses a rule document. Only a document that cannot be parsed at
// all is an error; malformed entries are logged and skipped.
func Decode(data []byte, format Format, logger *slog.Logger) ([]Rule, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var doc document
	switch format {
	case FormatTOML:
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode toml rules: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json rules: %w", err)
		}
	}

	result := make([]Rule, 0, len(doc.CheckEntries))
	for i, e := range doc.CheckEntries {
		rule, err := e.toRule()
		if err != nil {
			logger.Warn("skipping rule entry",
				slog.Int("entry", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		result = append(result, rule)
	}
	return result, nil
}

func (e entry) toRule() (Rule, error) {
	signal, err := ParseSignal(e.Signal)
	if err != nil {
		return Rule{}, err
	}

	conditions := make([]Condition, 0, len(e.Conditions))
	for _, c := range e.Conditions {
		kind, err := ParseConditionKind(c.Name)
		if err != nil {
			return Rule{}, err
		}
		if c.Arg == "" {
			continue
		}
		conditions = append(conditions, Condition{Kind: kind, Arg: c.Arg})
	}
	if len(conditions) == 0 {
		return Rule{}, ErrEmptyConditions
	}

	rule := Rule{Conditions: conditions, Signal: signal}
	if signal != SignalIgnore {
		rule.Properties = Some(e.Properties.resolve())
	}
	return rule, nil
}

// Defaults returns the library default rules.
func Defaults() []Rule {
	rules, err := Decode(defaultRules, FormatJSON, slog.Default())
	if err != nil {
		// The embedded file is part of the build.
		panic(fmt.Sprintf("rules: embedded defaults: %v", err))
	}
	return rules
}

// Opener resolves a location (file path or remote URI) to a readable stream.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Loader reads rule documents from a list of locations.
type Loader struct {
	opener Opener
	logger *slog.Logger
}

// NewLoader creates a Loader that reads through opener.
func NewLoader(opener Opener, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{opener: opener, logger: logger}
}

// Load reads every location in order and concatenates their rules. Missing
// or unreadable sources are logged and skipped. Load only fails when ctx is
// done.
func (l *Loader) Load(ctx context.Context, locations []string) ([]Rule, error) {
	var result []Rule
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}

		rules, err := l.loadOne(ctx, loc)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("load rules: %w", err)
			}
			l.logger.Warn("skipping rule source",
				slog.String("location", loc),
				slog.String("error", err.Error()),
			)
			continue
		}

		l.logger.Info("rule source loaded",
			slog.String("location", loc),
			slog.Int("entries", len(rules)),
		)
		result = append(result, rules...)
	}
	return result, nil
}

func (l *Loader) loadOne(ctx context.Context, location string) ([]Rule, error) {
	if l.opener == nil {
		return nil, errors.New("no rule source opener configured")
	}
	rc, err := l.opener.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read rule source: %w", err)
	}
	return Decode(data, FormatFromLocation(location), l.logger)
}
