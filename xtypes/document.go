package xtypes

// SchemaID is a URI string, either absolute ($id) or derived from a
// filesystem path. Unique within a run.
type SchemaID = string

// Document is a loaded JSON/YAML value together with its provenance.
// Schemas and instances both load as Documents; Document Store keeps them
// separate by role but shares this representation (spec.md §3).
type Document struct {
	SourceURI string
	SchemaID  SchemaID
	Raw       any
}
