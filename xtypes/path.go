package xtypes

import (
	"fmt"
	"strings"
)

// StepKind discriminates the four PathStep variants (spec.md §3).
type StepKind int

const (
	KeyStep StepKind = iota
	IndexStep
	AnyIndex
	AnyKey
)

// PathStep is one element of a PathTemplate or a resolved Location.
// Only KeyStep carries Key; only IndexStep carries Index. AnyIndex/AnyKey
// carry neither and only ever appear in a PathTemplate, never in a
// resolved Location.
type PathStep struct {
	Kind  StepKind
	Key   string
	Index int
}

func (s PathStep) String() string {
	switch s.Kind {
	case KeyStep:
		return s.Key
	case IndexStep:
		return fmt.Sprintf("%d", s.Index)
	case AnyIndex:
		return "[]"
	case AnyKey:
		return "*"
	default:
		return "?"
	}
}

// Key builds a concrete key PathStep.
func Key(name string) PathStep { return PathStep{Kind: KeyStep, Key: name} }

// IndexAt builds a concrete index PathStep.
func IndexAt(i int) PathStep { return PathStep{Kind: IndexStep, Index: i} }

// Any builds the wildcard-array PathStep.
func Any() PathStep { return PathStep{Kind: AnyIndex} }

// AnyMapKey builds the wildcard-map-key PathStep.
func AnyMapKey() PathStep { return PathStep{Kind: AnyKey} }

// PathTemplate is an ordered sequence of PathSteps, possibly containing
// wildcards (AnyIndex/AnyKey), resolved against instance values by the
// Path Engine (spec.md §4.B).
type PathTemplate []PathStep

// String renders a PathTemplate as a slash-separated token string, using
// literal "*" and "[]" tokens for the AnyKey/AnyIndex wildcards. Unlike
// Location.Pointer, this is not a valid JSON Pointer — it is meant for
// diagnostics and for reporting where an ExtensionSite's HostPath sits in
// a schema, not for addressing a concrete instance value.
func (t PathTemplate) String() string {
	if len(t) == 0 {
		return ""
	}
	var b strings.Builder
	for _, step := range t {
		b.WriteByte('/')
		b.WriteString(step.String())
	}
	return b.String()
}

// Location is a PathTemplate with every wildcard replaced by a concrete
// index or key — the result of resolving a PathTemplate against a value.
type Location []PathStep

// Pointer renders a Location as a JSON Pointer string.
func (l Location) Pointer() string {
	r := RootRef()
	for _, step := range l {
		switch step.Kind {
		case KeyStep:
			r = r.Field(step.Key)
		case IndexStep:
			r = r.Index(step.Index)
		default:
			// AnyIndex/AnyKey never appear in a resolved Location.
		}
	}
	return r.Pointer()
}
