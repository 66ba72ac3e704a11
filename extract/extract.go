// Package extract is the Key-Tuple Extractor (spec.md §4.E): given an
// ExtensionSite and an instance document, it resolves the site's HostPath
// against the document and reads off a KeyTuple at each resulting
// Location, applying the site's MemberSpec (Whole or Keys).
//
// Grounded on the original Python implementation's GetKeyValues/
// GenKeyStrings (extensions/unique_check.py): resolve the path template,
// then for each match either take the whole value or look up each member
// name, treating an absent member as a recoverable per-location error
// rather than aborting the run.
package extract

import (
	"fmt"

	"github.com/relstore/xschema/pathtmpl"
	"github.com/relstore/xschema/xtypes"
)

// Tuple is one extracted KeyTuple together with the Location it was read
// from, for building an Issue's OffendingLocations or a CacheEntry.
type Tuple struct {
	Value    xtypes.KeyTuple
	Location xtypes.Location
}

// Result is the outcome of extracting every tuple a site yields against one
// document.
type Result struct {
	Tuples []Tuple
	Issues []xtypes.Issue
}

// Extract resolves site.HostPath against doc and reads off a KeyTuple at
// each match per site.Member. documentURI is carried onto any MissingMember
// Issue for reporting.
func Extract(site xtypes.ExtensionSite, doc any, documentURI string) Result {
	matches := pathtmpl.ResolveValues(site.HostPath, doc)
	if len(matches) == 0 {
		return Result{}
	}

	var res Result
	for _, m := range matches {
		tuple, err := extractOne(site.Member, m.Value)
		if err != nil {
			res.Issues = append(res.Issues, xtypes.Issue{
				DocumentURI: documentURI,
				SchemaID:    site.SchemaID,
				Path:        m.Location.Pointer(),
				Code:        xtypes.CodeMissingMember,
				Message:     err.Error(),
			})
			continue
		}
		res.Tuples = append(res.Tuples, Tuple{Value: tuple, Location: m.Location})
	}
	return res
}

func extractOne(member xtypes.MemberSpec, value any) (xtypes.KeyTuple, error) {
	switch member.Kind {
	case xtypes.Whole:
		return xtypes.NewKeyTuple([]any{value}), nil
	case xtypes.Keys:
		m, ok := value.(map[string]any)
		if !ok {
			return xtypes.KeyTuple{}, fmt.Errorf("member extraction requires an object, got %T", value)
		}
		values := make([]any, len(member.KeyNames))
		for i, name := range member.KeyNames {
			v, present := m[name]
			if !present {
				return xtypes.KeyTuple{}, fmt.Errorf("missing member %q", name)
			}
			values[i] = v
		}
		return xtypes.NewKeyTuple(values), nil
	default:
		return xtypes.KeyTuple{}, fmt.Errorf("unknown member kind %v", member.Kind)
	}
}
