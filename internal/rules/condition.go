package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCondition is returned for a condition kind outside Name/Class/ID.
	ErrUnknownCondition = errors.New("rules: unknown condition kind")
	// ErrUnknownSignal is returned for a signal name outside NEW_CHAPTER/IGNORE.
	ErrUnknownSignal = errors.New("rules: unknown signal")
	// ErrEmptyConditions is returned for an entry that has no usable condition.
	ErrEmptyConditions = errors.New("rules: entry has no conditions")
)

// ConditionKind selects which part of the element shape a condition tests.
type ConditionKind int

const (
	// ByName matches the tag name.
	ByName ConditionKind = iota + 1
	// ByClass matches one of the element's classes.
	ByClass
	// ByID matches the id attribute.
	ByID
)

// String returns the configuration name of the kind.
func (k ConditionKind) String() string {
	switch k {
	case ByName:
		return "Name"
	case ByClass:
		return "Class"
	case ByID:
		return "ID"
	default:
		return fmt.Sprintf("ConditionKind(%d)", int(k))
	}
}

// ParseConditionKind converts a configuration name to a ConditionKind.
func ParseConditionKind(name string) (ConditionKind, error) {
	switch name {
	case "Name":
		return ByName, nil
	case "Class":
		return ByClass, nil
	case "ID":
		return ByID, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCondition, name)
	}
}

// Condition is a single shape predicate.
type Condition struct {
	Kind ConditionKind
	Arg  string
}

// Name returns a tag-name condition.
func Name(tag string) Condition { return Condition{Kind: ByName, Arg: tag} }

// Class returns a class condition.
func Class(name string) Condition { return Condition{Kind: ByClass, Arg: name} }

// ID returns an id condition.
func ID(id string) Condition { return Condition{Kind: ByID, Arg: id} }

// Check evaluates the condition against el.
func (c Condition) Check(el Element) bool {
	switch c.Kind {
	case ByName:
		return el.Name == c.Arg
	case ByClass:
		return el.HasClass(c.Arg)
	case ByID:
		return el.ID == c.Arg
	default:
		return false
	}
}
