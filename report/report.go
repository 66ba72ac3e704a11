// Package report is the validation Report JSON model and exit codes
// (spec.md §6.F, §6.G).
package report

import "github.com/relstore/xschema/xtypes"

// Exit codes, consumed by an external CLI per spec.md §6.G.
const (
	ExitOK             = 0
	ExitValidationFail = 1
	ExitInternalError  = 2
)

// Referenced mirrors xtypes.Referenced for report serialization.
type Referenced struct {
	SchemaID string `json:"schema_id"`
	Name     string `json:"name,omitempty"`
	Tuple    []any  `json:"tuple"`
}

// Entry is one reported error against a document.
type Entry struct {
	Kind               string      `json:"kind"`
	Path               string      `json:"path"`
	Message            string      `json:"message"`
	OffendingLocations []string    `json:"offending_locations,omitempty"`
	Referenced         *Referenced `json:"referenced,omitempty"`
}

// DocumentReport groups every Entry found against one document.
type DocumentReport struct {
	DocumentURI string  `json:"document_uri"`
	SchemaID    string  `json:"schema_id,omitempty"`
	Errors      []Entry `json:"errors"`
	// Annotation is populated by a caller-supplied annotator (e.g. a
	// jsonpath extractor); none ships in this module.
	Annotation any `json:"annotation,omitempty"`
}

// Report is the top-level JSON document spec.md §6.F describes.
type Report struct {
	Documents []DocumentReport `json:"documents"`
}

// ExitCode summarizes the report into the exit code spec.md §6.G defines.
func (r Report) ExitCode() int {
	for _, d := range r.Documents {
		if len(d.Errors) > 0 {
			return ExitValidationFail
		}
	}
	return ExitOK
}

// FromIssues groups a flat Issues slice into a Report, one DocumentReport
// per distinct DocumentURI, preserving first-seen order.
func FromIssues(issues xtypes.Issues) Report {
	order := []string{}
	byURI := map[string]*DocumentReport{}

	for _, iss := range issues {
		uri := iss.DocumentURI
		dr, ok := byURI[uri]
		if !ok {
			dr = &DocumentReport{DocumentURI: uri, SchemaID: iss.SchemaID}
			byURI[uri] = dr
			order = append(order, uri)
		}
		dr.Errors = append(dr.Errors, toEntry(iss))
	}

	out := Report{Documents: make([]DocumentReport, 0, len(order))}
	for _, uri := range order {
		out.Documents = append(out.Documents, *byURI[uri])
	}
	return out
}

func toEntry(iss xtypes.Issue) Entry {
	e := Entry{
		Kind:               iss.Code,
		Path:               iss.Path,
		Message:            iss.Message,
		OffendingLocations: iss.OffendingLocations,
	}
	if iss.Referenced != nil {
		e.Referenced = &Referenced{
			SchemaID: iss.Referenced.SchemaID,
			Name:     iss.Referenced.Name,
			Tuple:    iss.Referenced.Tuple.Values,
		}
	}
	return e
}
