// Package pathtmpl implements the Path Engine (spec.md §4.B): resolving a
// PathTemplate — a sequence of key/index steps, including wildcards for
// arrays and maps — against a concrete JSON value, yielding the ordered set
// of matching Locations.
//
// Resolution is depth-first, data-only (no closures are generated at
// schema-walk time, per spec.md §9), so a PathTemplate can be resolved many
// times against many instances, or serialized and shipped to a worker.
package pathtmpl

import (
	"sort"

	"github.com/relstore/xschema/xtypes"
)

// frontier pairs a value reached so far with the Location steps taken to
// reach it.
type frontier struct {
	value any
	loc   xtypes.Location
}

// Resolve walks tmpl against root depth-first, expanding AnyIndex/AnyKey in
// encounter order. A step that cannot be applied (KeyStep on a non-mapping,
// IndexStep out of range, AnyIndex on a non-sequence, AnyKey on a
// non-mapping) silently drops that branch — it contributes no Location,
// matching the teacher-grounded "silent miss" semantics spec.md §4.B and §9
// call out explicitly (e.g. for sites nested under a non-matching oneOf
// branch).
func Resolve(tmpl xtypes.PathTemplate, root any) []xtypes.Location {
	matches := ResolveValues(tmpl, root)
	out := make([]xtypes.Location, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Location)
	}
	return out
}

// Match pairs a resolved Location with the value found there, so callers
// (the Key-Tuple Extractor) don't need to re-walk root to fetch it.
type Match struct {
	Location xtypes.Location
	Value    any
}

// ResolveValues is Resolve plus the value found at each resulting Location.
func ResolveValues(tmpl xtypes.PathTemplate, root any) []Match {
	cur := []frontier{{value: root, loc: nil}}
	for _, step := range tmpl {
		var next []frontier
		for _, f := range cur {
			next = append(next, applyStep(step, f)...)
		}
		cur = next
		if len(cur) == 0 {
			return nil
		}
	}
	out := make([]Match, 0, len(cur))
	for _, f := range cur {
		out = append(out, Match{Location: f.loc, Value: f.value})
	}
	return out
}

func applyStep(step xtypes.PathStep, f frontier) []frontier {
	switch step.Kind {
	case xtypes.KeyStep:
		m, ok := f.value.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := m[step.Key]
		if !ok {
			return nil
		}
		return []frontier{{value: v, loc: appendStep(f.loc, step)}}

	case xtypes.IndexStep:
		seq, ok := f.value.([]any)
		if !ok {
			return nil
		}
		if step.Index < 0 || step.Index >= len(seq) {
			return nil
		}
		return []frontier{{value: seq[step.Index], loc: appendStep(f.loc, step)}}

	case xtypes.AnyIndex:
		seq, ok := f.value.([]any)
		if !ok {
			return nil
		}
		out := make([]frontier, 0, len(seq))
		for i, v := range seq {
			out = append(out, frontier{value: v, loc: appendStep(f.loc, xtypes.IndexAt(i))})
		}
		return out

	case xtypes.AnyKey:
		m, ok := f.value.(map[string]any)
		if !ok {
			return nil
		}
		out := make([]frontier, 0, len(m))
		for _, k := range sortedKeys(m) {
			out = append(out, frontier{value: m[k], loc: appendStep(f.loc, xtypes.Key(k))})
		}
		return out

	default:
		return nil
	}
}

func appendStep(loc xtypes.Location, step xtypes.PathStep) xtypes.Location {
	out := make(xtypes.Location, len(loc)+1)
	copy(out, loc)
	out[len(loc)] = step
	return out
}

// sortedKeys returns m's keys in a stable (lexicographic) order so AnyKey
// expansion is deterministic across runs — encounter order over a Go map is
// otherwise randomized.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
