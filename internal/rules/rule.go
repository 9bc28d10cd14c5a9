// Package rules classifies markup elements. A Rule is a conjunction of
// shape conditions mapped to speaker/pause properties and an optional
// signal; a Set evaluates rules in priority order and the first match wins.
package rules

import (
	"fmt"
	"strings"
)

// Element is the shape of a markup element as seen by conditions.
type Element struct {
	Name    string
	ID      string
	Classes []string
}

// NewElement builds an Element from a tag name and its attributes. The class
// attribute is split on whitespace.
func NewElement(name string, attrs map[string]string) Element {
	el := Element{Name: name}
	if id, ok := attrs["id"]; ok {
		el.ID = id
	}
	if class, ok := attrs["class"]; ok {
		el.Classes = strings.Fields(class)
	}
	return el
}

// HasClass reports whether the element carries the given class.
func (e Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Signal is an out-of-band instruction attached to a rule.
type Signal int

const (
	// SignalNone carries no instruction.
	SignalNone Signal = iota
	// SignalIgnore drops all text inside the element.
	SignalIgnore
	// SignalNewChapter starts a new chapter at the element's text.
	SignalNewChapter
)

// String returns the configuration name of the signal.
func (s Signal) String() string {
	switch s {
	case SignalIgnore:
		return "IGNORE"
	case SignalNewChapter:
		return "NEW_CHAPTER"
	default:
		return "NONE"
	}
}

// ParseSignal converts a configuration name to a Signal. The empty string
// maps to SignalNone.
func ParseSignal(name string) (Signal, error) {
	switch name {
	case "", "NONE", "NO_SIGNAL":
		return SignalNone, nil
	case "IGNORE":
		return SignalIgnore, nil
	case "NEW_CHAPTER":
		return SignalNewChapter, nil
	default:
		return SignalNone, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
	}
}

// Properties are the unit settings applied to text inside a matched element.
type Properties struct {
	SpeakerIndex int `json:"speakerIndex"`
	PauseAfterMs int `json:"pauseAfterMs"`
}

// OptionalProperties is Properties or nothing.
type OptionalProperties struct {
	Value Properties
	Valid bool
}

// Some wraps p as present properties.
func Some(p Properties) OptionalProperties {
	return OptionalProperties{Value: p, Valid: true}
}

// None is the absent value.
func None() OptionalProperties {
	return OptionalProperties{}
}

// Rule maps an element shape to properties and a signal.
type Rule struct {
	Conditions []Condition
	Properties OptionalProperties
	Signal     Signal
}

// Result is the outcome of evaluating an element.
type Result struct {
	Matched    bool
	Signal     Signal
	Properties OptionalProperties
}

// Evaluate checks the rule against el. All conditions must hold, except for
// IGNORE rules which fire as soon as any single condition holds. A rule
// without conditions never matches.
func (r Rule) Evaluate(el Element) Result {
	if len(r.Conditions) == 0 {
		return Result{}
	}

	if r.Signal == SignalIgnore {
		for _, c := range r.Conditions {
			if c.Check(el) {
				return Result{Matched: true, Signal: SignalIgnore}
			}
		}
		return Result{}
	}

	for _, c := range r.Conditions {
		if !c.Check(el) {
			return Result{}
		}
	}
	return Result{Matched: true, Signal: r.Signal, Properties: r.Properties}
}

// Set is an ordered, immutable list of rules.
type Set struct {
	rules []Rule
}

// NewSet creates a Set that evaluates rules in the given order.
func NewSet(rules ...Rule) *Set {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Set{rules: cp}
}

// Len returns the number of rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Rules returns a copy of the rules in priority order.
func (s *Set) Rules() []Rule {
	if s == nil {
		return nil
	}
	cp := make([]Rule, len(s.rules))
	copy(cp, s.rules)
	return cp
}

// Evaluate returns the result of the first matching rule, or an unmatched
// result with SignalNone and no properties.
func (s *Set) Evaluate(el Element) Result {
	if s == nil {
		return Result{}
	}
	for _, r := range s.rules {
		if res := r.Evaluate(el); res.Matched {
			return res
		}
	}
	return Result{}
}

// Compose builds a Set from rule groups in strict priority order: rules
// passed by the caller, rules from per-document override sources, then the
// library defaults.
func Compose(explicit, overrides, defaults []Rule) *Set {
	all := make([]Rule, 0, len(explicit)+len(overrides)+len(defaults))
	all = append(all, explicit...)
	all = append(all, overrides...)
	all = append(all, defaults...)
	return &Set{rules: all}
}
