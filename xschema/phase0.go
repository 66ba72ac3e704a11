package xschema

import "github.com/relstore/xschema/xtypes"

// pairing is the outcome of phase 0 for one instance: the schema-ids it was
// paired with (zero, one under normal pairing, or more than one under
// guess-schema where several schemas validate it), plus the standard
// validation Issues already produced while guessing (so phase 1 doesn't
// re-validate instances guess-schema already validated).
type pairing struct {
	schemaIDs  []string
	stdIssues  map[string]xtypes.Issues // schema-id -> issues, for guess-schema reuse
}

// pairSchema implements spec.md §4.F phase 0: determine which schema-id(s)
// an instance belongs to.
func (v *Validator) pairSchema(doc xtypes.Document) pairing {
	candidates := v.candidateSchemaIDs()

	if id, ok := extractSchemaIDPath(doc.Raw, v.cfg.schemaIDPath()); ok {
		if v.hasSchema(id) && contains(candidates, id) {
			return pairing{schemaIDs: []string{id}}
		}
	}

	if v.cfg.GuessSchema {
		var matched []string
		stdIssues := map[string]xtypes.Issues{}
		for _, id := range candidates {
			sch, ok := v.schemas[id]
			if !ok {
				continue
			}
			issues := sch.Validate(doc.Raw)
			stdIssues[id] = issues
			if len(issues) == 0 {
				matched = append(matched, id)
			}
		}
		return pairing{schemaIDs: matched, stdIssues: stdIssues}
	}

	return pairing{}
}

func (v *Validator) candidateSchemaIDs() []string {
	if len(v.cfg.UseSchemas) > 0 {
		return v.cfg.UseSchemas
	}
	return v.schemaIDs()
}

func (v *Validator) hasSchema(id string) bool {
	_, ok := v.schemas[id]
	return ok
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// extractSchemaIDPath reads the first of path's keys present as a string
// value at the top level of raw (spec.md §4.F phase 0.2).
func extractSchemaIDPath(raw any, path []string) (string, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return "", false
	}
	for _, key := range path {
		if v, ok := m[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
