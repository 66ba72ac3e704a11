// Package docstore is the Document Store (spec.md §4.A) plus the document
// loader (spec.md §6.B): it walks schema and instance directories with
// doublestar glob patterns, decodes each JSON/YAML file into the same
// map[string]any/[]any/scalar shape regardless of source format, and
// returns the results as a slice sorted by path, each carrying its source
// URI and (for schemas) its schema-id.
//
// The pluggable-decoder shape — a small Decoder interface with a default
// encoding/json implementation and an optional goccy/go-json one — follows
// the teacher's own SetJSONDriver idiom: swap the decode path without
// touching anything downstream of Load.
package docstore

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	goccyjson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/relstore/xschema/xtypes"
)

// Decoder decodes one JSON document's raw bytes into the shared any-shaped
// value tree (map[string]any/[]any/scalars). Numbers decode as
// json.Number so xtypes.KeyTuple canonicalization can tell integers from
// floats without losing precision.
type Decoder interface {
	Decode(data []byte) (any, error)
}

type stdJSONDecoder struct{}

func (stdJSONDecoder) Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

type goccyJSONDecoder struct{}

func (goccyJSONDecoder) Decode(data []byte) (any, error) {
	dec := goccyjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Loader walks directories and decodes the files it finds into Documents.
type Loader struct {
	// JSON decodes .json files. Defaults to encoding/json; set to
	// NewGoccyLoader's decoder for the faster goccy/go-json path.
	JSON Decoder
}

// NewLoader returns a Loader using the standard library's encoding/json.
func NewLoader() *Loader {
	return &Loader{JSON: stdJSONDecoder{}}
}

// NewGoccyLoader returns a Loader decoding JSON with goccy/go-json instead
// of encoding/json.
func NewGoccyLoader() *Loader {
	return &Loader{JSON: goccyJSONDecoder{}}
}

var globPatterns = []string{"**/*.json", "**/*.yaml", "**/*.yml"}

// LoadSchemas walks dir for schema documents, assigning each a SchemaID
// from its $id (falling back to "id", then to its source URI).
func (l *Loader) LoadSchemas(dir string) ([]xtypes.Document, xtypes.Issues) {
	docs, issues := l.load(dir)
	for i := range docs {
		docs[i].SchemaID = schemaIDOf(docs[i].Raw, docs[i].SourceURI)
	}
	return docs, issues
}

// LoadInstances walks dir for instance documents. SchemaID is left empty —
// pairing an instance to a schema is the Validator Core's job (phase 0,
// spec.md §4.F), not the loader's.
func (l *Loader) LoadInstances(dir string) ([]xtypes.Document, xtypes.Issues) {
	return l.load(dir)
}

func (l *Loader) load(dir string) ([]xtypes.Document, xtypes.Issues) {
	fsys := os.DirFS(dir)
	var rels []string
	for _, pattern := range globPatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, xtypes.Issues{{
				Code:    xtypes.CodeInstanceLoadError,
				Message: "glob " + pattern + " under " + dir + ": " + err.Error(),
			}}
		}
		rels = append(rels, matches...)
	}
	sort.Strings(rels)

	var docs []xtypes.Document
	var issues xtypes.Issues
	for _, rel := range rels {
		sourceURI := path.Join(dir, rel)
		raw, err := decodeFile(fsys, rel, l.JSON)
		if err != nil {
			issues = append(issues, xtypes.Issue{
				DocumentURI: sourceURI,
				Code:        xtypes.CodeInstanceLoadError,
				Message:     err.Error(),
			})
			continue
		}
		docs = append(docs, xtypes.Document{SourceURI: sourceURI, Raw: raw})
	}
	return docs, issues
}

func decodeFile(fsys fs.FS, rel string, jsonDecoder Decoder) (any, error) {
	data, err := fs.ReadFile(fsys, rel)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(rel, ".yaml") || strings.HasSuffix(rel, ".yml") {
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return normalizeYAML(v), nil
	}
	return jsonDecoder.Decode(data)
}

// normalizeYAML recursively converts the map[string]any yaml.v3 already
// produces for mapping nodes into the exact shape JSON decoding produces —
// yaml.v3 decodes scalars as native Go ints/floats/bools rather than
// json.Number, which is otherwise fine for canonicalization (see
// xtypes.canonicalize) since every concrete int type marshals identically.
func normalizeYAML(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeYAML(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeYAML(e)
		}
		return out
	default:
		return x
	}
}

func schemaIDOf(raw any, fallback string) xtypes.SchemaID {
	m, ok := raw.(map[string]any)
	if !ok {
		return fallback
	}
	if id, ok := m["$id"].(string); ok && id != "" {
		return id
	}
	if id, ok := m["id"].(string); ok && id != "" {
		return id
	}
	return fallback
}
