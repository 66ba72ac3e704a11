// Package traverse is the Schema Traverser (spec.md §4.D): it walks every
// subschema reachable from a schema root, discovering extension keywords
// and emitting ExtensionSite records carrying the host path template
// accumulated from the root to that subschema.
//
// The recursion shape is grounded on the teacher's kubeopenapi/refs.go
// $ref/composition walk (resolveRefsInPlace/resolveOne): depth-first,
// children of allOf/anyOf/oneOf merged as alternative sites. It keeps no
// visited set; it only descends the decoded value tree. Unlike that walk, this traverser does not resolve $ref itself — spec.md
// §4.D's keyword-to-host-position table does not list $ref, only
// properties/patternProperties/additionalProperties/items/prefixItems/
// additionalItems/$defs/definitions/allOf/anyOf/oneOf; $ref resolution for
// standard validation purposes is the external validator's job (§6.A).
package traverse

import (
	"fmt"
	"sort"

	"github.com/relstore/xschema/registry"
	"github.com/relstore/xschema/xtypes"
)

// Result is the output of discovery for one schema.
type Result struct {
	Sites  []xtypes.ExtensionSite
	Issues []xtypes.Issue
}

// Discover walks schema (the decoded root value of a JSON Schema document)
// and returns every ExtensionSite it finds, using reg to recognize and
// parse extension keywords.
func Discover(schemaID string, schema any, reg registry.Registry) Result {
	d := &discoverer{schemaID: schemaID, reg: reg, seenPKNames: map[string]bool{}}
	d.walk(schema, nil)
	return Result{Sites: d.sites, Issues: d.issues}
}

type discoverer struct {
	schemaID    string
	reg         registry.Registry
	sites       []xtypes.ExtensionSite
	issues      []xtypes.Issue
	seenPKNames map[string]bool
}

func (d *discoverer) walk(node any, path xtypes.PathTemplate) {
	sub, ok := node.(map[string]any)
	if !ok {
		return
	}

	d.emitSites(sub, path)

	if props, ok := sub["properties"].(map[string]any); ok {
		for _, name := range sortedKeys(props) {
			d.walk(props[name], appendStep(path, xtypes.Key(name)))
		}
	}
	if pp, ok := sub["patternProperties"].(map[string]any); ok {
		for _, pattern := range sortedKeys(pp) {
			d.walk(pp[pattern], appendStep(path, xtypes.AnyMapKey()))
		}
	}
	if ap, ok := sub["additionalProperties"].(map[string]any); ok {
		d.walk(ap, appendStep(path, xtypes.AnyMapKey()))
	}
	switch items := sub["items"].(type) {
	case map[string]any:
		d.walk(items, appendStep(path, xtypes.Any()))
	case []any:
		for _, it := range items {
			d.walk(it, appendStep(path, xtypes.Any()))
		}
	}
	if pi, ok := sub["prefixItems"].([]any); ok {
		for i, it := range pi {
			d.walk(it, appendStep(path, xtypes.IndexAt(i)))
		}
	}
	if ai, ok := sub["additionalItems"].(map[string]any); ok {
		d.walk(ai, appendStep(path, xtypes.Any()))
	}
	if defs, ok := sub["$defs"].(map[string]any); ok {
		for _, name := range sortedKeys(defs) {
			d.walk(defs[name], path)
		}
	}
	if defs, ok := sub["definitions"].(map[string]any); ok {
		for _, name := range sortedKeys(defs) {
			d.walk(defs[name], path)
		}
	}
	for _, kw := range []string{"allOf", "anyOf", "oneOf"} {
		if arr, ok := sub[kw].([]any); ok {
			for _, branch := range arr {
				d.walk(branch, path)
			}
		}
	}
}

// emitSites checks sub for each registered extension keyword and appends
// the resulting ExtensionSites.
func (d *discoverer) emitSites(sub map[string]any, path xtypes.PathTemplate) {
	for _, kw := range sortedRegistryKeywords(d.reg) {
		raw, present := sub[kw]
		if !present {
			continue
		}
		entry := d.reg[kw]
		decls, err := entry.Parse(raw)
		if err != nil {
			d.issues = append(d.issues, xtypes.Issue{
				SchemaID: d.schemaID,
				Path:     pathString(path),
				Code:     xtypes.CodeSchemaLoadError,
				Message:  fmt.Sprintf("invalid %q declaration: %v", kw, err),
			})
			continue
		}
		for _, decl := range decls {
			site := xtypes.ExtensionSite{
				SchemaID:       d.schemaID,
				HostPath:       clonePath(path),
				Kind:           entry.Kind,
				Member:         decl.Member,
				Name:           decl.Name,
				LimitScope:     decl.LimitScope,
				TargetSchemaID: decl.TargetSchemaID,
				TargetName:     decl.TargetName,
				Provider:       decl.Provider,
			}
			if entry.Kind == xtypes.PrimaryKey {
				if d.seenPKNames[decl.Name] {
					d.issues = append(d.issues, xtypes.Issue{
						SchemaID: d.schemaID,
						Path:     pathString(path),
						Code:     xtypes.CodeSchemaLoadError,
						Message:  fmt.Sprintf("duplicate primary_key name %q in schema %q", decl.Name, d.schemaID),
					})
					continue
				}
				d.seenPKNames[decl.Name] = true
			}
			d.sites = append(d.sites, site)
		}
	}
}

func appendStep(path xtypes.PathTemplate, step xtypes.PathStep) xtypes.PathTemplate {
	out := make(xtypes.PathTemplate, len(path)+1)
	copy(out, path)
	out[len(path)] = step
	return out
}

func clonePath(path xtypes.PathTemplate) xtypes.PathTemplate {
	out := make(xtypes.PathTemplate, len(path))
	copy(out, path)
	return out
}

func pathString(path xtypes.PathTemplate) string {
	return path.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRegistryKeywords(reg registry.Registry) []string {
	keys := make([]string, 0, len(reg))
	for k := range reg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
