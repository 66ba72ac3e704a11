package xtypes

import (
	"fmt"
	"strings"
)

// Issue kind codes, one per spec.md §7 error kind.
const (
	CodeSchemaLoadError         = "schema_load_error"
	CodeInstanceLoadError       = "instance_load_error"
	CodeUnknownSchema           = "unknown_schema"
	CodeStandardValidationError = "standard_validation_error"
	CodeMissingMember           = "missing_member"
	CodeUniquenessViolation     = "uniqueness_violation"
	CodeUnresolvedReference     = "unresolved_reference"
	CodeDanglingForeignKey      = "dangling_foreign_key"
	CodeDanglingJoinKey         = "dangling_join_key"
	CodeProviderFetchError      = "provider_fetch_error"
)

// Referenced describes the (schema, name, tuple) a FK/JK check failed against,
// surfaced in the report per spec.md §6.F.
type Referenced struct {
	SchemaID string
	Name     string
	Tuple    KeyTuple
}

// Issue represents a single validation finding. The shape mirrors the
// teacher's own Issue type (Path/Code/Message/Params/Cause) with the extra
// fields spec.md §6.F's report entries need.
type Issue struct {
	DocumentURI        string
	SchemaID           string
	Path               string // JSON Pointer; discovery and uniqueness issues carry PathTemplate.String().
	Code               string
	Message            string
	Cause              error
	OffendingLocations []string
	Referenced         *Referenced
	Params             map[string]any
}

// Issues is a collection of Issue that implements error.
type Issues []Issue

// Error summarizes the first few issues, in the teacher's style.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends more issues to dst, initializing it when needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil && len(more) == 0 {
		return dst
	}
	return append(dst, more...)
}
