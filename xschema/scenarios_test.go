package xschema_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relstore/xschema/report"
	"github.com/relstore/xschema/xconfig"
	"github.com/relstore/xschema/xschema"
	"github.com/relstore/xschema/xtypes"
)

func schemaDoc(id string, raw map[string]any) xtypes.Document {
	return xtypes.Document{SourceURI: id, SchemaID: id, Raw: raw}
}

func instanceDoc(uri string, raw map[string]any) xtypes.Document {
	return xtypes.Document{SourceURI: uri, Raw: raw}
}

func countCode(issues xtypes.Issues, code string) int {
	n := 0
	for _, iss := range issues {
		if iss.Code == code {
			n++
		}
	}
	return n
}

func allIssues(t *testing.T, r *report.Report) xtypes.Issues {
	t.Helper()
	var out xtypes.Issues
	for _, d := range r.Documents {
		for _, e := range d.Errors {
			out = append(out, xtypes.Issue{Code: e.Kind, DocumentURI: d.DocumentURI, Path: e.Path})
		}
	}
	return out
}

// S1 — global unique violation.
func TestScenarioS1GlobalUniqueViolation(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"local_id": map[string]any{"type": "string", "unique": true},
		},
	}
	v, err := xschema.New(xschema.Config{ContinueOnError: true, GuessSchema: true})
	if err != nil {
		t.Fatal(err)
	}
	if issues := v.AddSchemas([]xtypes.Document{schemaDoc("s1.schema.json", schema)}); len(issues) != 0 {
		t.Fatalf("unexpected schema load issues: %v", issues)
	}

	instances := []xtypes.Document{
		instanceDoc("A.json", map[string]any{"local_id": "X"}),
		instanceDoc("B.json", map[string]any{"local_id": "X"}),
	}
	r, err := v.Run(context.Background(), instances)
	if err != nil {
		t.Fatal(err)
	}
	if n := countCode(allIssues(t, r), xtypes.CodeUniquenessViolation); n != 1 {
		t.Fatalf("expected exactly 1 UniquenessViolation, got %d (%+v)", n, r)
	}
}

// S2 — named unique with members.
func TestScenarioS2NamedUniqueWithMembers(t *testing.T) {
	schema := map[string]any{
		"type":   "object",
		"unique": map[string]any{"name": "pair", "members": []any{"local_id", "other_id"}},
		"properties": map[string]any{
			"local_id": map[string]any{"type": "string"},
			"other_id": map[string]any{"type": "integer"},
		},
	}
	v, err := xschema.New(xschema.Config{ContinueOnError: true, GuessSchema: true})
	if err != nil {
		t.Fatal(err)
	}
	if issues := v.AddSchemas([]xtypes.Document{schemaDoc("s2.schema.json", schema)}); len(issues) != 0 {
		t.Fatalf("unexpected schema load issues: %v", issues)
	}

	instances := []xtypes.Document{
		instanceDoc("1.json", map[string]any{"local_id": "a", "other_id": 1}),
		instanceDoc("2.json", map[string]any{"local_id": "a", "other_id": 2}),
		instanceDoc("3.json", map[string]any{"local_id": "a", "other_id": 1}),
	}
	r, err := v.Run(context.Background(), instances)
	if err != nil {
		t.Fatal(err)
	}
	issues := allIssues(t, r)
	if n := countCode(issues, xtypes.CodeUniquenessViolation); n != 1 {
		t.Fatalf("expected exactly 1 UniquenessViolation, got %d (%+v)", n, issues)
	}
}

// S3 — FK to named PK.
func TestScenarioS3ForeignKeyToNamedPrimaryKey(t *testing.T) {
	s1 := map[string]any{
		"type":        "object",
		"required":    []any{"local_id", "other_id"},
		"primary_key": map[string]any{"name": "pk", "members": []any{"local_id", "other_id"}},
		"properties": map[string]any{
			"local_id": map[string]any{"type": "string"},
			"other_id": map[string]any{"type": "string"},
		},
	}
	s2 := map[string]any{
		"type":     "object",
		"required": []any{"ref_local_id", "ref_other_id"},
		"foreign_keys": []any{
			map[string]any{"schema_id": "S1/1.0", "refers_to": "pk", "members": []any{"ref_local_id", "ref_other_id"}},
		},
		"properties": map[string]any{
			"ref_local_id": map[string]any{"type": "string"},
			"ref_other_id": map[string]any{"type": "string"},
		},
	}
	v, err := xschema.New(xschema.Config{ContinueOnError: true, GuessSchema: true})
	if err != nil {
		t.Fatal(err)
	}
	schemas := []xtypes.Document{schemaDoc("S1/1.0", s1), schemaDoc("S2/1.0", s2)}
	if issues := v.AddSchemas(schemas); len(issues) != 0 {
		t.Fatalf("unexpected schema load issues: %v", issues)
	}

	instances := []xtypes.Document{
		instanceDoc("pk.json", map[string]any{"local_id": "a", "other_id": "b"}),
		instanceDoc("fk_ok.json", map[string]any{"ref_local_id": "a", "ref_other_id": "b"}),
		instanceDoc("fk_bad.json", map[string]any{"ref_local_id": "a", "ref_other_id": "c"}),
	}
	r, err := v.Run(context.Background(), instances)
	if err != nil {
		t.Fatal(err)
	}
	issues := allIssues(t, r)
	if n := countCode(issues, xtypes.CodeDanglingForeignKey); n != 1 {
		t.Fatalf("expected exactly 1 DanglingForeignKey, got %d (%+v)", n, issues)
	}
}

// S4 — inline_provider acceptance.
func TestScenarioS4InlineProviderAcceptance(t *testing.T) {
	s1 := map[string]any{
		"type":                 "object",
		"required":             []any{"local_id"},
		"additionalProperties": false,
		"properties": map[string]any{
			"local_id": map[string]any{"type": "string", "primary_key": true},
		},
	}
	s2 := map[string]any{
		"type":                 "object",
		"required":             []any{"ref_id"},
		"additionalProperties": false,
		"foreign_keys": []any{
			map[string]any{"schema_id": "S1/1.0", "members": []any{"ref_id"}},
		},
		"properties": map[string]any{
			"ref_id": map[string]any{"type": "string"},
		},
	}
	cfg := xschema.Config{
		ContinueOnError: true,
		GuessSchema:     true,
		PrimaryKeyConfig: xconfig.PrimaryKeyConfig{
			InlineProvider: map[string][]any{"S1/1.0": {"X", "Y"}},
		},
	}
	v, err := xschema.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	schemas := []xtypes.Document{schemaDoc("S1/1.0", s1), schemaDoc("S2/1.0", s2)}
	if issues := v.AddSchemas(schemas); len(issues) != 0 {
		t.Fatalf("unexpected schema load issues: %v", issues)
	}

	instances := []xtypes.Document{
		instanceDoc("local.json", map[string]any{"local_id": "Z"}),
		instanceDoc("ok.json", map[string]any{"ref_id": "X"}),
		instanceDoc("bad.json", map[string]any{"ref_id": "Q"}),
	}
	r, err := v.Run(context.Background(), instances)
	if err != nil {
		t.Fatal(err)
	}
	issues := allIssues(t, r)
	if n := countCode(issues, xtypes.CodeDanglingForeignKey); n != 1 {
		t.Fatalf("expected exactly 1 DanglingForeignKey, got %d (%+v)", n, issues)
	}
}

// S5 — allow_provider_duplicates, exercised through the real Provider
// Fetcher against an httptest server, unlike xref's unit-level S5 tests.
func TestScenarioS5AllowProviderDuplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("X\n"))
	}))
	defer srv.Close()

	run := func(allow bool) xtypes.Issues {
		schema := map[string]any{
			"type": "object",
			"properties": map[string]any{
				"local_id": map[string]any{
					"type": "string",
					"primary_key": map[string]any{
						"members":                   true,
						"provider":                  []any{srv.URL + "/"},
						"allow_provider_duplicates": allow,
					},
				},
			},
		}
		v, err := xschema.New(xschema.Config{ContinueOnError: true, GuessSchema: true})
		if err != nil {
			t.Fatal(err)
		}
		if issues := v.AddSchemas([]xtypes.Document{schemaDoc("s5.schema.json", schema)}); len(issues) != 0 {
			t.Fatalf("unexpected schema load issues: %v", issues)
		}
		instances := []xtypes.Document{instanceDoc("local.json", map[string]any{"local_id": "X"})}
		r, err := v.Run(context.Background(), instances)
		if err != nil {
			t.Fatal(err)
		}
		return allIssues(t, r)
	}

	if n := countCode(run(false), xtypes.CodeUniquenessViolation); n != 1 {
		t.Fatalf("allow_provider_duplicates=false: expected 1 violation, got %d", n)
	}
	if n := countCode(run(true), xtypes.CodeUniquenessViolation); n != 0 {
		t.Fatalf("allow_provider_duplicates=true: expected 0 violations, got %d", n)
	}
}

// S6 — limit_scope.
func TestScenarioS6LimitScope(t *testing.T) {
	run := func(limitScope bool) xtypes.Issues {
		schema := map[string]any{
			"type": "object",
			"properties": map[string]any{
				"local_id": map[string]any{
					"type":        "string",
					"primary_key": map[string]any{"members": true, "limit_scope": limitScope},
				},
			},
		}
		v, err := xschema.New(xschema.Config{ContinueOnError: true, GuessSchema: true})
		if err != nil {
			t.Fatal(err)
		}
		if issues := v.AddSchemas([]xtypes.Document{schemaDoc("s6.schema.json", schema)}); len(issues) != 0 {
			t.Fatalf("unexpected schema load issues: %v", issues)
		}
		instances := []xtypes.Document{
			instanceDoc("A.json", map[string]any{"local_id": "X"}),
			instanceDoc("B.json", map[string]any{"local_id": "X"}),
		}
		r, err := v.Run(context.Background(), instances)
		if err != nil {
			t.Fatal(err)
		}
		return allIssues(t, r)
	}

	if n := countCode(run(false), xtypes.CodeUniquenessViolation); n != 1 {
		t.Fatalf("limit_scope=false: expected 1 violation, got %d", n)
	}
	if n := countCode(run(true), xtypes.CodeUniquenessViolation); n != 0 {
		t.Fatalf("limit_scope=true: expected 0 violations, got %d", n)
	}
}
