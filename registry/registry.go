// Package registry is the Extension Registry (spec.md §4.C): a catalogue of
// the five extension keywords, each entry declaring how to recognize the
// keyword on a subschema, how to parse its value into a MemberSpec plus
// metadata, and which validation phase it participates in.
package registry

import (
	"fmt"

	"github.com/relstore/xschema/xtypes"
)

// Phase distinguishes keywords that only need to be gathered in phase 1 and
// resolved in phase 2 (ForeignKey, JoinKey) from those that both gather and
// register directly (Unique, PrimaryKey, Index) — spec.md §4.F.
type Phase int

const (
	PhaseOneAndTwo Phase = iota
	PhaseOne
)

// Entry bundles one extension keyword's recognizer, parser, and phase.
type Entry struct {
	Keyword string
	Kind    xtypes.ExtensionKind
	Phase   Phase
	// Parse decodes the raw keyword value (already type-asserted to be
	// present under e.Keyword) into zero or more ExtensionSites' worth of
	// metadata. For Unique/PrimaryKey/Index it returns one Decl, or none for
	// a literal false; for ForeignKey/JoinKey it returns one Decl per array
	// element.
	Parse func(raw any) ([]Decl, error)
}

// Decl is one parsed declaration of an extension keyword at a subschema
// position: a MemberSpec plus the metadata the Schema Traverser folds into
// an ExtensionSite.
type Decl struct {
	Member         xtypes.MemberSpec
	Name           string
	LimitScope     bool
	TargetSchemaID string // ForeignKey/JoinKey only ("schema_id").
	TargetName     string // ForeignKey/JoinKey only ("refers_to").
	Provider       *xtypes.ProviderConfig
}

// Registry maps each recognized keyword to its Entry.
type Registry map[string]Entry

// Default returns the catalogue of the five built-in extension keywords
// (spec.md §6.E). Callers may add further keywords to the returned map
// before handing it to the Schema Traverser.
func Default() Registry {
	return Registry{
		"unique":       {Keyword: "unique", Kind: xtypes.Unique, Phase: PhaseOneAndTwo, Parse: parseUniqueLike},
		"primary_key":  {Keyword: "primary_key", Kind: xtypes.PrimaryKey, Phase: PhaseOneAndTwo, Parse: parsePrimaryKey},
		"index":        {Keyword: "index", Kind: xtypes.Index, Phase: PhaseOneAndTwo, Parse: parseUniqueLike},
		"foreign_keys": {Keyword: "foreign_keys", Kind: xtypes.ForeignKey, Phase: PhaseOne, Parse: parseRefKeys},
		"join_keys":    {Keyword: "join_keys", Kind: xtypes.JoinKey, Phase: PhaseOne, Parse: parseRefKeys},
	}
}

// parseUniqueLike parses the unique/index grammar:
// true | [string,...] | {members: true|[string,...], name?, limit_scope?}
func parseUniqueLike(raw any) ([]Decl, error) {
	switch v := raw.(type) {
	case bool:
		if !v {
			return nil, nil
		}
		return []Decl{{Member: xtypes.MemberSpec{Kind: xtypes.Whole}}}, nil
	case []any:
		names, err := stringSlice(v)
		if err != nil {
			return nil, err
		}
		return []Decl{{Member: xtypes.MemberSpec{Kind: xtypes.Keys, KeyNames: names}}}, nil
	case map[string]any:
		member, err := memberFromObject(v)
		if err != nil {
			return nil, err
		}
		name, _ := v["name"].(string)
		limitScope, _ := v["limit_scope"].(bool)
		return []Decl{{Member: member, Name: name, LimitScope: limitScope}}, nil
	default:
		return nil, fmt.Errorf("unsupported keyword value type %T", raw)
	}
}

// parsePrimaryKey parses the primary_key grammar: unique-like, plus the
// provider fields absorbed per spec.md §4.D/§4.H.
func parsePrimaryKey(raw any) ([]Decl, error) {
	decls, err := parseUniqueLike(raw)
	if err != nil || len(decls) == 0 {
		return decls, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return decls, nil
	}
	pc := &xtypes.ProviderConfig{}
	hasProvider := false
	if ip, ok := obj["inline_provider"].([]any); ok {
		pc.InlineProvider = ip
		hasProvider = true
	}
	if p, ok := obj["provider"]; ok {
		hasProvider = true
		switch pv := p.(type) {
		case string:
			pc.Providers = []string{pv}
		case []any:
			for _, e := range pv {
				if s, ok := e.(string); ok {
					pc.Providers = append(pc.Providers, s)
				}
			}
		}
	}
	if sp, ok := obj["schema_prefix"].(string); ok {
		pc.SchemaPrefix = sp
		hasProvider = true
	}
	if acc, ok := obj["accept"].(string); ok {
		pc.Accept = acc
		hasProvider = true
	} else {
		pc.Accept = "text/uri-list"
	}
	if apd, ok := obj["allow_provider_duplicates"].(bool); ok {
		pc.AllowProviderDuplicates = apd
	}
	if hasProvider {
		decls[0].Provider = pc
	}
	return decls, nil
}

func memberFromObject(v map[string]any) (xtypes.MemberSpec, error) {
	members, ok := v["members"]
	if !ok {
		return xtypes.MemberSpec{}, fmt.Errorf("object form requires \"members\"")
	}
	switch m := members.(type) {
	case bool:
		if !m {
			return xtypes.MemberSpec{}, fmt.Errorf("members: false is not a valid declaration")
		}
		return xtypes.MemberSpec{Kind: xtypes.Whole}, nil
	case []any:
		names, err := stringSlice(m)
		if err != nil {
			return xtypes.MemberSpec{}, err
		}
		return xtypes.MemberSpec{Kind: xtypes.Keys, KeyNames: names}, nil
	default:
		return xtypes.MemberSpec{}, fmt.Errorf("unsupported members value type %T", members)
	}
}

// parseRefKeys parses the foreign_keys/join_keys grammar: an array of
// {schema_id?, refers_to?, members:[string,...]}.
func parseRefKeys(raw any) ([]Decl, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array, got %T", raw)
	}
	decls := make([]Decl, 0, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d: expected an object, got %T", i, elem)
		}
		membersRaw, ok := obj["members"]
		if !ok {
			return nil, fmt.Errorf("element %d: missing required \"members\"", i)
		}
		memberArr, ok := membersRaw.([]any)
		if !ok {
			return nil, fmt.Errorf("element %d: \"members\" must be an array", i)
		}
		names, err := stringSlice(memberArr)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		schemaID, _ := obj["schema_id"].(string)
		refersTo, _ := obj["refers_to"].(string)
		decls = append(decls, Decl{
			Member:         xtypes.MemberSpec{Kind: xtypes.Keys, KeyNames: names},
			TargetSchemaID: schemaID,
			TargetName:     refersTo,
		})
	}
	return decls, nil
}

func stringSlice(v []any) ([]string, error) {
	out := make([]string, 0, len(v))
	for _, e := range v {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", e)
		}
		out = append(out, s)
	}
	return out, nil
}
