package traverse_test

import (
	"testing"

	"github.com/relstore/xschema/registry"
	"github.com/relstore/xschema/traverse"
	"github.com/relstore/xschema/xtypes"
)

func mustPointer(t *testing.T, path xtypes.PathTemplate) string {
	return path.String()
}

func TestDiscoverPropertiesAppendsKeyStep(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"id": map[string]any{
				"type":   "string",
				"unique": true,
			},
		},
	}
	res := traverse.Discover("s1", schema, registry.Default())
	if len(res.Sites) != 1 {
		t.Fatalf("expected 1 site, got %d: %#v", len(res.Sites), res.Sites)
	}
	site := res.Sites[0]
	if got := mustPointer(t, site.HostPath); got != "/id" {
		t.Fatalf("unexpected host path %q", got)
	}
	if site.Kind != xtypes.Unique {
		t.Fatalf("expected Unique, got %v", site.Kind)
	}
}

func TestDiscoverItemsAppendsAnyIndex(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"rows": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":        "object",
					"primary_key": []any{"id"},
				},
			},
		},
	}
	res := traverse.Discover("s1", schema, registry.Default())
	if len(res.Sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(res.Sites))
	}
	if got := mustPointer(t, res.Sites[0].HostPath); got != "/rows/[]" {
		t.Fatalf("unexpected host path %q", got)
	}
	if res.Sites[0].Kind != xtypes.PrimaryKey {
		t.Fatalf("expected PrimaryKey, got %v", res.Sites[0].Kind)
	}
}

func TestDiscoverPrefixItemsAppendsIndexStep(t *testing.T) {
	schema := map[string]any{
		"prefixItems": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "string", "unique": true},
		},
	}
	res := traverse.Discover("s1", schema, registry.Default())
	if len(res.Sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(res.Sites))
	}
	if got := mustPointer(t, res.Sites[0].HostPath); got != "/1" {
		t.Fatalf("unexpected host path %q", got)
	}
}

func TestDiscoverCompositionDoesNotAlterPath(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"record": map[string]any{
				"allOf": []any{
					map[string]any{
						"type":        "object",
						"primary_key": true,
					},
				},
			},
		},
	}
	res := traverse.Discover("s1", schema, registry.Default())
	if len(res.Sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(res.Sites))
	}
	if got := mustPointer(t, res.Sites[0].HostPath); got != "/record" {
		t.Fatalf("unexpected host path %q", got)
	}
}

func TestDiscoverDefsDoesNotAlterPath(t *testing.T) {
	schema := map[string]any{
		"$defs": map[string]any{
			"row": map[string]any{
				"type":   "object",
				"unique": []any{"id"},
			},
		},
	}
	res := traverse.Discover("s1", schema, registry.Default())
	if len(res.Sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(res.Sites))
	}
	if got := mustPointer(t, res.Sites[0].HostPath); got != "" {
		t.Fatalf("unexpected host path %q", got)
	}
}

func TestDiscoverForeignKeysAndJoinKeysParseArrayForm(t *testing.T) {
	schema := map[string]any{
		"foreign_keys": []any{
			map[string]any{
				"schema_id": "other.schema.json",
				"refers_to": "by_code",
				"members":   []any{"code"},
			},
		},
		"join_keys": []any{
			map[string]any{
				"members": []any{"tenant_id"},
			},
		},
	}
	res := traverse.Discover("s1", schema, registry.Default())
	if len(res.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d: %#v", len(res.Sites), res.Sites)
	}
	var sawFK, sawJK bool
	for _, s := range res.Sites {
		switch s.Kind {
		case xtypes.ForeignKey:
			sawFK = true
			if s.TargetSchemaID != "other.schema.json" || s.TargetName != "by_code" {
				t.Fatalf("unexpected foreign key site %#v", s)
			}
		case xtypes.JoinKey:
			sawJK = true
		}
	}
	if !sawFK || !sawJK {
		t.Fatalf("expected both a foreign_key and a join_key site, got %#v", res.Sites)
	}
}

func TestDiscoverDuplicatePrimaryKeyNameIsAnIssue(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"a": map[string]any{
				"type":        "object",
				"primary_key": map[string]any{"members": true, "name": "dup"},
			},
			"b": map[string]any{
				"type":        "object",
				"primary_key": map[string]any{"members": true, "name": "dup"},
			},
		},
	}
	res := traverse.Discover("s1", schema, registry.Default())
	if len(res.Sites) != 1 {
		t.Fatalf("expected the second duplicate to be dropped, got %d sites", len(res.Sites))
	}
	if len(res.Issues) != 1 {
		t.Fatalf("expected 1 issue for the duplicate name, got %d", len(res.Issues))
	}
	if res.Issues[0].Code != xtypes.CodeSchemaLoadError {
		t.Fatalf("unexpected issue code %v", res.Issues[0].Code)
	}
}

func TestDiscoverDuplicateAnonymousPrimaryKeyIsAnIssue(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"a": map[string]any{
				"type":        "object",
				"primary_key": map[string]any{"members": true},
			},
			"b": map[string]any{
				"type":        "object",
				"primary_key": map[string]any{"members": true},
			},
		},
	}
	res := traverse.Discover("s1", schema, registry.Default())
	if len(res.Sites) != 1 {
		t.Fatalf("expected the second duplicate to be dropped, got %d sites", len(res.Sites))
	}
	if len(res.Issues) != 1 {
		t.Fatalf("expected 1 issue for the duplicate unnamed primary_key, got %d", len(res.Issues))
	}
	if res.Issues[0].Code != xtypes.CodeSchemaLoadError {
		t.Fatalf("unexpected issue code %v", res.Issues[0].Code)
	}
}

func TestDiscoverOnNonObjectSchemaIsNoop(t *testing.T) {
	res := traverse.Discover("s1", "not-a-schema", registry.Default())
	if len(res.Sites) != 0 || len(res.Issues) != 0 {
		t.Fatalf("expected no sites or issues, got %#v", res)
	}
}
