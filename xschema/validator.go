package xschema

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/relstore/xschema/cache"
	"github.com/relstore/xschema/jsvalidate"
	"github.com/relstore/xschema/traverse"
	"github.com/relstore/xschema/xref"
	"github.com/relstore/xschema/xtypes"
)

// Validator holds every compiled schema, its discovered ExtensionSites, and
// the Key Cache for a run. Build one with New, load schemas with
// AddSchemas, then call Run once per instance corpus.
type Validator struct {
	cfg Config

	compiler  *jsvalidate.Compiler
	schemas   map[string]*jsvalidate.Schema
	schemaRaw map[string]any
	sites     map[string][]xtypes.ExtensionSite

	cache *cache.Cache
}

// New returns a Validator ready to accept schemas. If cfg.CacheDir is set,
// it opens (and, under cache.Invalidate, rebuilds) the Key Cache.
func New(cfg Config) (*Validator, error) {
	v := &Validator{
		cfg:       cfg,
		compiler:  jsvalidate.NewCompiler(),
		schemas:   map[string]*jsvalidate.Schema{},
		schemaRaw: map[string]any{},
		sites:     map[string][]xtypes.ExtensionSite{},
	}
	if cfg.CacheDir != "" {
		c, err := cache.Open(cfg.CacheDir, cfg.CachePolicy)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		v.cache = c
	}
	return v, nil
}

// Close releases the Key Cache's database handle, if one was opened.
func (v *Validator) Close() error {
	if v.cache == nil {
		return nil
	}
	return v.cache.Close()
}

// AddSchemas registers every schema Document: it adds each as a compiler
// resource (so cross-schema $refs resolve), compiles it, and discovers its
// ExtensionSites. A schema that fails to compile yields a SchemaLoadError
// Issue for that schema-id and is otherwise skipped.
func (v *Validator) AddSchemas(docs []xtypes.Document) xtypes.Issues {
	var issues xtypes.Issues
	failed := map[string]bool{}

	for _, doc := range docs {
		v.schemaRaw[doc.SchemaID] = doc.Raw
		if err := v.compiler.AddSchema(doc.SchemaID, doc.Raw); err != nil {
			issues = append(issues, xtypes.Issue{
				SchemaID: doc.SchemaID,
				Code:     xtypes.CodeSchemaLoadError,
				Message:  err.Error(),
			})
			failed[doc.SchemaID] = true
		}
	}

	reg := v.cfg.registry()
	for _, doc := range docs {
		if failed[doc.SchemaID] {
			continue
		}
		sch, err := v.compiler.Compile(doc.SchemaID)
		if err != nil {
			issues = append(issues, xtypes.Issue{
				SchemaID: doc.SchemaID,
				Code:     xtypes.CodeSchemaLoadError,
				Message:  err.Error(),
			})
			continue
		}
		v.schemas[doc.SchemaID] = sch

		result := traverse.Discover(doc.SchemaID, doc.Raw, reg)
		v.sites[doc.SchemaID] = result.Sites
		issues = xtypes.AppendIssues(issues, result.Issues...)
	}
	return issues
}

// schemaIDs returns every loaded schema-id in a stable order.
func (v *Validator) schemaIDs() []string {
	ids := make([]string, 0, len(v.schemas))
	for id := range v.schemas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// newRunID tags one Run invocation for Logf correlation, grounded on the
// teacher corpus's own idgen.UUID pattern (artpar-apigate/adapters/idgen).
func newRunID() string {
	return uuid.New().String()
}

// pkSites returns every PrimaryKey ExtensionSite across every loaded
// schema, together with the declaring schema-id.
func (v *Validator) pkSites() []pkSite {
	var out []pkSite
	for _, id := range v.schemaIDs() {
		for _, site := range v.sites[id] {
			if site.Kind == xtypes.PrimaryKey {
				out = append(out, pkSite{schemaID: id, site: site})
			}
		}
	}
	return out
}

type pkSite struct {
	schemaID string
	site     xtypes.ExtensionSite
}

func (p pkSite) key() xref.NamedKey {
	return xref.NamedKey{SchemaID: p.schemaID, Name: p.site.Name}
}
