// Package jsvalidate wraps the underlying JSON Schema validator (spec.md
// §6.A): github.com/santhosh-tekuri/jsonschema/v5, a draft-04-through-2020-12
// compliant implementation whose $schema-driven draft detection and
// registry-based $ref resolution across multiple added resources match
// spec.md §6.A's "honoring the draft indicated by the schema's $schema
// keyword... ability to load $refs from a provided document store"
// requirement directly — no need to re-implement either concern.
//
// Every schema document the Document Store loaded is added as a named
// resource before any of them are compiled, so a $ref in one schema can
// resolve into another loaded schema by its schema-id.
package jsvalidate

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/relstore/xschema/xtypes"
)

// Compiler accumulates schema resources and compiles them into Schemas.
type Compiler struct {
	inner *jsonschema.Compiler
}

// NewCompiler returns an empty Compiler.
func NewCompiler() *Compiler {
	return &Compiler{inner: jsonschema.NewCompiler()}
}

// AddSchema registers raw (the decoded JSON Schema document) under
// schemaID so later $ref resolution and Compile can find it.
func (c *Compiler) AddSchema(schemaID string, raw any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("re-encode schema %q: %w", schemaID, err)
	}
	if err := c.inner.AddResource(schemaID, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("add schema resource %q: %w", schemaID, err)
	}
	return nil
}

// Compile compiles the previously added schemaID into a validatable Schema.
func (c *Compiler) Compile(schemaID string) (*Schema, error) {
	sch, err := c.inner.Compile(schemaID)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", schemaID, err)
	}
	return &Schema{schemaID: schemaID, inner: sch}, nil
}

// Schema is a compiled JSON Schema ready to validate instances against.
type Schema struct {
	schemaID string
	inner    *jsonschema.Schema
}

// Validate runs standard JSON Schema validation on instance, returning one
// Issue per leaf validation failure (spec.md §4.F phase 1.a). A nil/empty
// result means the instance is standard-valid.
func (s *Schema) Validate(instance any) xtypes.Issues {
	err := s.inner.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return xtypes.Issues{{
			SchemaID: s.schemaID,
			Code:     xtypes.CodeStandardValidationError,
			Message:  err.Error(),
			Cause:    err,
		}}
	}
	var out xtypes.Issues
	flatten(s.schemaID, ve, &out)
	return out
}

// flatten walks a ValidationError's Causes tree, emitting one Issue per
// leaf — a leaf being a node with no further Causes, i.e. the specific
// keyword that actually failed rather than an enclosing allOf/anyOf.
func flatten(schemaID string, ve *jsonschema.ValidationError, out *xtypes.Issues) {
	if len(ve.Causes) == 0 {
		*out = append(*out, xtypes.Issue{
			SchemaID: schemaID,
			Path:     ve.InstanceLocation,
			Code:     xtypes.CodeStandardValidationError,
			Message:  ve.Message,
			Cause:    ve,
		})
		return
	}
	for _, cause := range ve.Causes {
		flatten(schemaID, cause, out)
	}
}
