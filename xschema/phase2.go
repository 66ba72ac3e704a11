package xschema

import (
	"context"
	"fmt"

	"github.com/relstore/xschema/xref"
	"github.com/relstore/xschema/xtypes"
)

// taggedTuple is one tuple contributing to a Unique/PrimaryKey group,
// carrying enough provenance to build an Issue's offending_locations list
// and to apply the allow_provider_duplicates rule.
type taggedTuple struct {
	tuple       xtypes.KeyTuple
	origin      xtypes.Origin
	location    xtypes.Location
	documentURI string
}

// group is one (schema_id, site, scope) uniqueness bucket.
type group struct {
	site    xtypes.ExtensionSite
	entries map[string][]taggedTuple // canon -> contributing tuples
}

// phase2 implements spec.md §4.F phase 2: uniqueness/primary-key grouping,
// index registration, and foreign/join-key resolution, run sequentially
// once phase 1 has produced every record.
func (v *Validator) phase2(ctx context.Context, records []record) (xtypes.Issues, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolver := xref.NewResolver()
	for _, ps := range v.pkSites() {
		resolver.DeclarePK(ps.key())
	}
	for _, id := range v.schemaIDs() {
		for _, site := range v.sites[id] {
			if site.Kind == xtypes.Index {
				resolver.DeclareIndex(xref.NamedKey{SchemaID: id, Name: site.Name})
			}
		}
	}

	providerTuples, inlineTuples, providerIssues, err := v.resolvePKProviderTuples(ctx)
	if err != nil {
		return nil, err
	}
	var issues xtypes.Issues
	issues = xtypes.AppendIssues(issues, providerIssues...)

	groups := map[string]*group{}
	for _, rec := range records {
		switch rec.site.Kind {
		case xtypes.Unique:
			addToGroup(groups, rec.schemaID, rec.site, rec.site.LimitScope, rec.documentURI, taggedTuple{
				tuple: rec.tuple, origin: xtypes.LocalInstance, location: rec.location, documentURI: rec.documentURI,
			})
		case xtypes.PrimaryKey:
			addToGroup(groups, rec.schemaID, rec.site, rec.site.LimitScope, rec.documentURI, taggedTuple{
				tuple: rec.tuple, origin: xtypes.LocalInstance, location: rec.location, documentURI: rec.documentURI,
			})
		case xtypes.Index:
			resolver.RegisterIndex(xref.NamedKey{SchemaID: rec.schemaID, Name: rec.site.Name}, rec.tuple, xtypes.LocalInstance)
		}
	}

	// Inline and Provider tuples join the site's GLOBAL group whatever its
	// limit_scope.
	for _, ps := range v.pkSites() {
		key := groupKey(ps.schemaID, ps.site, false, "")
		for _, t := range inlineTuples[ps.key()] {
			addGroupEntry(groups, key, ps.site, taggedTuple{tuple: t, origin: xtypes.Inline})
		}
		for _, t := range providerTuples[ps.key()] {
			addGroupEntry(groups, key, ps.site, taggedTuple{tuple: t.Tuple, origin: xtypes.Provider})
		}
	}

	// Register every tuple into the resolver's PK index for FK lookups.
	// RegisterPK's own violation result is not used: uniqueness violations
	// are detected from the groups below.
	for _, g := range groups {
		if g.site.Kind != xtypes.PrimaryKey {
			continue
		}
		allow := g.site.Provider != nil && g.site.Provider.AllowProviderDuplicates
		key := xref.NamedKey{SchemaID: g.site.SchemaID, Name: g.site.Name}
		for _, entries := range g.entries {
			for _, e := range entries {
				resolver.RegisterPK(key, e.tuple, e.origin, allow)
			}
		}
	}

	issues = xtypes.AppendIssues(issues, detectUniquenessViolations(groups, v.cfg.PrimaryKeyConfig.AllowProviderDuplicates)...)

	for _, rec := range records {
		if rec.site.Kind != xtypes.ForeignKey && rec.site.Kind != xtypes.JoinKey {
			continue
		}
		targetSchemaID := rec.site.TargetSchemaID
		if targetSchemaID == "" {
			targetSchemaID = rec.schemaID
		}
		var result xref.ReferenceResult
		if rec.site.Kind == xtypes.JoinKey {
			result = resolver.CheckJoinKey(targetSchemaID, rec.site.TargetName, rec.tuple)
		} else {
			result = resolver.CheckForeignKey(targetSchemaID, rec.site.TargetName, rec.tuple)
		}
		if result == xref.RefOK {
			continue
		}
		issues = append(issues, refIssue(rec, targetSchemaID, result))
	}

	return issues, nil
}

func addToGroup(groups map[string]*group, schemaID string, site xtypes.ExtensionSite, limitScope bool, documentURI string, tt taggedTuple) {
	key := groupKey(schemaID, site, limitScope, documentURI)
	addGroupEntry(groups, key, site, tt)
}

func addGroupEntry(groups map[string]*group, key string, site xtypes.ExtensionSite, tt taggedTuple) {
	g, ok := groups[key]
	if !ok {
		g = &group{site: site, entries: map[string][]taggedTuple{}}
		groups[key] = g
	}
	canon := tt.tuple.Canon()
	g.entries[canon] = append(g.entries[canon], tt)
}

func groupKey(schemaID string, site xtypes.ExtensionSite, limitScope bool, documentURI string) string {
	scope := "GLOBAL"
	if limitScope {
		scope = documentURI
	}
	return schemaID + "\x00" + siteKey(site) + "\x00" + scope
}

// siteKey identifies a site within its schema: its explicit name, falling
// back to its host path plus member shape for unnamed sites.
func siteKey(site xtypes.ExtensionSite) string {
	if site.Name != "" {
		return site.Name
	}
	return fmt.Sprintf("%s#%d:%v", site.HostPath.String(), site.Member.Kind, site.Member.KeyNames)
}

// detectUniquenessViolations emits one UniquenessViolation Issue per
// duplicate canonical tuple in a Unique/PrimaryKey group, listing every
// contributing location (spec.md §8 scenarios S1/S2). A PrimaryKey group
// whose duplicate entries include a Provider-origin tuple is suppressed
// when allow_provider_duplicates is set on that site or in the
// configuration file (fileAllow) (spec.md §8 S5).
func detectUniquenessViolations(groups map[string]*group, fileAllow bool) xtypes.Issues {
	var issues xtypes.Issues
	for _, g := range groups {
		siteAllow := g.site.Provider != nil && g.site.Provider.AllowProviderDuplicates
		allow := g.site.Kind == xtypes.PrimaryKey && (siteAllow || fileAllow)
		for _, entries := range g.entries {
			if len(entries) < 2 {
				continue
			}
			if allow && involvesProvider(entries) {
				continue
			}
			var locations []string
			var docURI string
			for _, e := range entries {
				if e.origin == xtypes.LocalInstance {
					locations = append(locations, e.documentURI+"#"+e.location.Pointer())
					if docURI == "" {
						docURI = e.documentURI
					}
				}
			}
			issues = append(issues, xtypes.Issue{
				DocumentURI:        docURI,
				SchemaID:           g.site.SchemaID,
				Path:               g.site.HostPath.String(),
				Code:               xtypes.CodeUniquenessViolation,
				Message:            fmt.Sprintf("duplicate tuple for %q", siteKey(g.site)),
				OffendingLocations: locations,
			})
		}
	}
	return issues
}

func involvesProvider(entries []taggedTuple) bool {
	for _, e := range entries {
		if e.origin == xtypes.Provider {
			return true
		}
	}
	return false
}

// refIssue builds the UnresolvedReference/DanglingForeignKey/DanglingJoinKey
// Issue for a failed foreign_keys/join_keys membership check.
func refIssue(rec record, targetSchemaID string, result xref.ReferenceResult) xtypes.Issue {
	code := xtypes.CodeDanglingForeignKey
	if rec.site.Kind == xtypes.JoinKey {
		code = xtypes.CodeDanglingJoinKey
	}
	if result == xref.RefUnresolved {
		code = xtypes.CodeUnresolvedReference
	}
	iss := xtypes.Issue{
		DocumentURI: rec.documentURI,
		SchemaID:    rec.schemaID,
		Path:        rec.location.Pointer(),
		Code:        code,
		Message:     fmt.Sprintf("no matching %s in %q (%q)", targetKindLabel(rec.site.Kind), targetSchemaID, rec.site.TargetName),
	}
	if result == xref.RefDangling {
		iss.Referenced = &xtypes.Referenced{SchemaID: targetSchemaID, Name: rec.site.TargetName, Tuple: rec.tuple}
	}
	return iss
}

func targetKindLabel(kind xtypes.ExtensionKind) string {
	if kind == xtypes.JoinKey {
		return "index"
	}
	return "primary key"
}
