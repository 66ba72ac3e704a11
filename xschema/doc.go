// Package xschema is the Validator Core (spec.md §4.F): it orchestrates
// the Document Store, Schema Traverser, Key-Tuple Extractor, Key Cache,
// Provider Fetcher, and Reference Resolver through the three-phase control
// flow described there — schema pairing, per-instance extraction, and
// cross-document reference resolution.
//
// Common data-model types are re-exported from xtypes for top-level
// ergonomics, so callers of this package rarely need to import xtypes
// directly.
package xschema

import "github.com/relstore/xschema/xtypes"

type (
	Issue    = xtypes.Issue
	Issues   = xtypes.Issues
	Document = xtypes.Document
	KeyTuple = xtypes.KeyTuple
	SchemaID = xtypes.SchemaID
)

var NewKeyTuple = xtypes.NewKeyTuple
