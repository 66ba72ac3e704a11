package xtypes

import (
	"encoding/json"
	"sort"
	"strconv"
)

// KeyTuple is an ordered sequence of JSON values extracted at an
// ExtensionSite's Location, compared by structural equality (spec.md §3):
// strings byte-wise, numbers by canonical numeric form (1 == 1.0), booleans
// and null as themselves, sequences element-wise, mappings by sorted key
// set. The canonical form doubles as the tuple's cache/map key.
type KeyTuple struct {
	Values []any
	canon  string
}

// NewKeyTuple builds a KeyTuple, computing its canonical form once.
func NewKeyTuple(values []any) KeyTuple {
	norm := make([]any, len(values))
	for i, v := range values {
		norm[i] = canonicalize(v)
	}
	b, err := json.Marshal(norm)
	canon := ""
	if err == nil {
		canon = string(b)
	}
	return KeyTuple{Values: values, canon: canon}
}

// Canon returns the tuple's canonical string form, suitable as a map key.
func (t KeyTuple) Canon() string { return t.canon }

// KeyTupleFromCanon reconstructs a KeyTuple from an already-canonicalized
// string, e.g. one read back from the Key Cache. Values is left nil: the
// canon form is the only thing a persisted cache row carries, and it is
// also the only thing equality comparisons and cache lookups need.
func KeyTupleFromCanon(canon string) KeyTuple {
	return KeyTuple{canon: canon}
}

// canonicalize recursively normalizes a decoded JSON value so that
// structurally-equal-but-differently-typed numbers compare equal, and map
// keys serialize in a stable (sorted) order.
func canonicalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		return canonicalizeNumberString(string(x))
	case float64:
		return canonicalizeFloat(x)
	case float32:
		return canonicalizeFloat(float64(x))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, []any{k, canonicalize(x[k])})
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return x
	}
}

func canonicalizeFloat(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}

func canonicalizeNumberString(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	var f float64
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return s
	}
	return canonicalizeFloat(f)
}

// Origin records where a CacheEntry's tuple came from (spec.md §3).
type Origin int

const (
	LocalInstance Origin = iota
	Inline
	Provider
)

func (o Origin) String() string {
	switch o {
	case LocalInstance:
		return "local_instance"
	case Inline:
		return "inline"
	case Provider:
		return "provider"
	default:
		return "unknown"
	}
}

// CacheEntry is a persisted primary-key or index tuple (spec.md §3/§4.G).
type CacheEntry struct {
	SchemaID  SchemaID
	PKName    string
	Tuple     KeyTuple
	Origin    Origin
	OriginKey string // provider URL, or "" for local/inline entries.
}
