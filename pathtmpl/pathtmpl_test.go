package pathtmpl_test

import (
	"reflect"
	"testing"

	"github.com/relstore/xschema/pathtmpl"
	"github.com/relstore/xschema/xtypes"
)

func TestResolveKeyStep(t *testing.T) {
	doc := map[string]any{"local_id": "X"}
	locs := pathtmpl.Resolve(xtypes.PathTemplate{xtypes.Key("local_id")}, doc)
	if len(locs) != 1 || locs[0].Pointer() != "/local_id" {
		t.Fatalf("unexpected locations: %#v", locs)
	}
}

func TestResolveMissingKeyIsSilentMiss(t *testing.T) {
	doc := map[string]any{"other": "X"}
	locs := pathtmpl.Resolve(xtypes.PathTemplate{xtypes.Key("local_id")}, doc)
	if len(locs) != 0 {
		t.Fatalf("expected no locations, got %#v", locs)
	}
}

func TestResolveAnyIndex(t *testing.T) {
	doc := map[string]any{
		"items": []any{
			map[string]any{"id": "a"},
			map[string]any{"id": "b"},
		},
	}
	tmpl := xtypes.PathTemplate{xtypes.Key("items"), xtypes.Any(), xtypes.Key("id")}
	locs := pathtmpl.Resolve(tmpl, doc)
	want := []string{"/items/0/id", "/items/1/id"}
	got := make([]string, len(locs))
	for i, l := range locs {
		got[i] = l.Pointer()
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestResolveAnyKeyIsSortedAndDeterministic(t *testing.T) {
	doc := map[string]any{
		"byName": map[string]any{
			"zeta":  map[string]any{"id": "z"},
			"alpha": map[string]any{"id": "a"},
		},
	}
	tmpl := xtypes.PathTemplate{xtypes.Key("byName"), xtypes.AnyMapKey(), xtypes.Key("id")}
	locs := pathtmpl.Resolve(tmpl, doc)
	want := []string{"/byName/alpha/id", "/byName/zeta/id"}
	got := make([]string, len(locs))
	for i, l := range locs {
		got[i] = l.Pointer()
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestResolveIndexStepOutOfRange(t *testing.T) {
	doc := map[string]any{"items": []any{"only"}}
	tmpl := xtypes.PathTemplate{xtypes.Key("items"), xtypes.IndexAt(5)}
	locs := pathtmpl.Resolve(tmpl, doc)
	if len(locs) != 0 {
		t.Fatalf("expected no locations, got %#v", locs)
	}
}

func TestResolveAnyIndexOnNonSequenceIsSilentMiss(t *testing.T) {
	doc := map[string]any{"items": "not-a-list"}
	tmpl := xtypes.PathTemplate{xtypes.Key("items"), xtypes.Any()}
	locs := pathtmpl.Resolve(tmpl, doc)
	if len(locs) != 0 {
		t.Fatalf("expected no locations, got %#v", locs)
	}
}
