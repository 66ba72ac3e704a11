package xschema

import (
	"context"

	"github.com/relstore/xschema/cache"
	"github.com/relstore/xschema/provider"
	"github.com/relstore/xschema/xconfig"
	"github.com/relstore/xschema/xref"
	"github.com/relstore/xschema/xtypes"
)

// resolvePKProviderTuples gathers the Provider-origin and Inline-origin
// tuples for every PrimaryKey site, per the Key Cache's four modes
// (spec.md §4.G): invalidate/warm-up/lazy-load all fetch eagerly here and
// persist to the cache (lazy-load's "first demand" is simplified to "the
// start of phase 2", since phase 2 is where the PK index is first needed);
// read-only never fetches, reading only what the cache already holds.
func (v *Validator) resolvePKProviderTuples(ctx context.Context) (
	providerTuples map[xref.NamedKey][]provider.FetchedTuple,
	inlineTuples map[xref.NamedKey][]xtypes.KeyTuple,
	issues xtypes.Issues,
	err error,
) {
	providerTuples = map[xref.NamedKey][]provider.FetchedTuple{}
	inlineTuples = map[xref.NamedKey][]xtypes.KeyTuple{}

	for _, ps := range v.pkSites() {
		key := ps.key()
		inlineTuples[key] = inlineTuplesFor(ps, v.cfg.PrimaryKeyConfig)

		pc := effectiveProviderConfig(ps.site.Provider, v.cfg.PrimaryKeyConfig)
		if len(pc.Providers) == 0 {
			continue
		}

		if v.cache != nil && v.cache.Mode() == cache.ReadOnly {
			tuples, rerr := v.readCachedProviderTuples(ps.schemaID, ps.site.Name)
			if rerr != nil {
				return nil, nil, nil, rerr
			}
			providerTuples[key] = tuples
			continue
		}

		fetched, fetchIssues := v.cfg.fetcher().FetchSchema(ctx, pc, ps.schemaID)
		issues = xtypes.AppendIssues(issues, fetchIssues...)
		providerTuples[key] = fetched
		if v.cache != nil {
			for _, t := range fetched {
				if perr := v.cache.Put(xtypes.CacheEntry{
					SchemaID:  ps.schemaID,
					PKName:    ps.site.Name,
					Tuple:     t.Tuple,
					Origin:    xtypes.Provider,
					OriginKey: t.SourceURL,
				}); perr != nil {
					v.cfg.logf("cache write failed for %s/%s: %v", ps.schemaID, ps.site.Name, perr)
				}
			}
		}
	}
	return providerTuples, inlineTuples, issues, nil
}

func (v *Validator) readCachedProviderTuples(schemaID, pkName string) ([]provider.FetchedTuple, error) {
	entries, err := v.cache.All(schemaID, pkName)
	if err != nil {
		return nil, err
	}
	var out []provider.FetchedTuple
	for _, e := range entries {
		if e.Origin != xtypes.Provider {
			continue
		}
		out = append(out, provider.FetchedTuple{Tuple: e.Tuple, SourceURL: e.OriginKey})
	}
	return out, nil
}

// inlineTuplesFor unions a schema-embedded primary_key object's own
// inline_provider list with the configuration file's schema_id-keyed one
// (spec.md §6.C: "multiple providers and inline providers may coexist and
// are unioned"). Each literal value is a tuple (already a list) or a bare
// scalar, which becomes a 1-tuple.
func inlineTuplesFor(ps pkSite, fileCfg xconfig.PrimaryKeyConfig) []xtypes.KeyTuple {
	var literal []any
	if ps.site.Provider != nil {
		literal = append(literal, ps.site.Provider.InlineProvider...)
	}
	literal = append(literal, fileCfg.InlineProviderFor(ps.schemaID)...)

	out := make([]xtypes.KeyTuple, 0, len(literal))
	for _, v := range literal {
		if arr, ok := v.([]any); ok {
			out = append(out, xtypes.NewKeyTuple(arr))
		} else {
			out = append(out, xtypes.NewKeyTuple([]any{v}))
		}
	}
	return out
}

// effectiveProviderConfig merges a schema-embedded ProviderConfig with the
// configuration file's primary_key section (spec.md §6.C: providers union,
// first non-empty schema_prefix/accept wins, allow_provider_duplicates is
// true if either side sets it).
func effectiveProviderConfig(schemaCfg *xtypes.ProviderConfig, fileCfg xconfig.PrimaryKeyConfig) *xtypes.ProviderConfig {
	out := &xtypes.ProviderConfig{}
	if schemaCfg != nil {
		out.Providers = append(out.Providers, schemaCfg.Providers...)
		out.SchemaPrefix = schemaCfg.SchemaPrefix
		out.Accept = schemaCfg.Accept
		out.AllowProviderDuplicates = schemaCfg.AllowProviderDuplicates
	}
	out.Providers = append(out.Providers, fileCfg.Provider...)
	if out.SchemaPrefix == "" {
		out.SchemaPrefix = fileCfg.SchemaPrefix
	}
	if out.Accept == "" {
		out.Accept = fileCfg.AcceptOrDefault()
	}
	out.AllowProviderDuplicates = out.AllowProviderDuplicates || fileCfg.AllowProviderDuplicates
	return out
}
