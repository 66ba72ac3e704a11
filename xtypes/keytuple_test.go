package xtypes_test

import (
	"encoding/json"
	"testing"

	"github.com/relstore/xschema/xtypes"
)

func TestKeyTupleCanonEqualAcrossNumericTypes(t *testing.T) {
	a := xtypes.NewKeyTuple([]any{1})
	b := xtypes.NewKeyTuple([]any{int64(1)})
	c := xtypes.NewKeyTuple([]any{1.0})
	d := xtypes.NewKeyTuple([]any{json.Number("1")})
	if a.Canon() != b.Canon() || b.Canon() != c.Canon() || c.Canon() != d.Canon() {
		t.Fatalf("expected equal canon forms: %q %q %q %q", a.Canon(), b.Canon(), c.Canon(), d.Canon())
	}
}

func TestKeyTupleCanonDistinguishesDifferentValues(t *testing.T) {
	a := xtypes.NewKeyTuple([]any{1})
	b := xtypes.NewKeyTuple([]any{2})
	if a.Canon() == b.Canon() {
		t.Fatalf("expected different canon forms, both got %q", a.Canon())
	}
}

func TestKeyTupleCanonMapKeyOrderIsStable(t *testing.T) {
	a := xtypes.NewKeyTuple([]any{map[string]any{"b": 1, "a": 2}})
	b := xtypes.NewKeyTuple([]any{map[string]any{"a": 2, "b": 1}})
	if a.Canon() != b.Canon() {
		t.Fatalf("expected map canon form independent of key insertion order: %q vs %q", a.Canon(), b.Canon())
	}
}

func TestKeyTupleCanonDistinguishesTupleLength(t *testing.T) {
	a := xtypes.NewKeyTuple([]any{"x"})
	b := xtypes.NewKeyTuple([]any{"x", "x"})
	if a.Canon() == b.Canon() {
		t.Fatal("expected a 1-tuple and a 2-tuple to canonicalize differently")
	}
}

func TestKeyTupleFromCanonRoundTripsForComparison(t *testing.T) {
	orig := xtypes.NewKeyTuple([]any{"a", 1})
	reconstructed := xtypes.KeyTupleFromCanon(orig.Canon())
	if reconstructed.Canon() != orig.Canon() {
		t.Fatalf("expected canon round-trip, got %q vs %q", reconstructed.Canon(), orig.Canon())
	}
}

func TestOriginString(t *testing.T) {
	cases := map[xtypes.Origin]string{
		xtypes.LocalInstance: "local_instance",
		xtypes.Inline:        "inline",
		xtypes.Provider:      "provider",
	}
	for origin, want := range cases {
		if got := origin.String(); got != want {
			t.Errorf("Origin(%d).String() = %q, want %q", origin, got, want)
		}
	}
}
