package xschema

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/relstore/xschema/extract"
	"github.com/relstore/xschema/xtypes"
)

// record is one gathered (tuple, location) pair for a site, tagged with the
// document and schema it was extracted against. Phase 2 groups records by
// site and resolves FK/JK references against them.
type record struct {
	site        xtypes.ExtensionSite
	schemaID    string
	documentURI string
	tuple       xtypes.KeyTuple
	location    xtypes.Location
}

// instanceShard is one instance's phase-1 output, gathered independently of
// every other instance so phase 1 can run on a bounded worker pool with no
// shared mutable state beyond the eventual shard merge (spec.md §5).
type instanceShard struct {
	sourceURI string
	records   []record
	issues    xtypes.Issues
}

// phase1 runs standard validation plus tuple gathering for every instance,
// bounded by cfg.Concurrency goroutines, and returns the merged, ordered
// record log plus every Issue raised along the way.
func (v *Validator) phase1(ctx context.Context, instances []xtypes.Document) ([]record, xtypes.Issues, error) {
	shards := make([]instanceShard, len(instances))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.concurrency())

	for i, doc := range instances {
		i, doc := i, doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			shards[i] = v.extractInstance(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(shards, func(i, j int) bool { return shards[i].sourceURI < shards[j].sourceURI })

	var records []record
	var issues xtypes.Issues
	for _, shard := range shards {
		records = append(records, shard.records...)
		issues = xtypes.AppendIssues(issues, shard.issues...)
	}
	return records, issues, nil
}

// extractInstance performs phase 0 pairing, standard validation, and tuple
// gathering for a single instance.
func (v *Validator) extractInstance(doc xtypes.Document) instanceShard {
	shard := instanceShard{sourceURI: doc.SourceURI}

	pair := v.pairSchema(doc)
	if len(pair.schemaIDs) == 0 {
		shard.issues = append(shard.issues, xtypes.Issue{
			DocumentURI: doc.SourceURI,
			Code:        xtypes.CodeUnknownSchema,
			Message:     "no schema matched this instance",
		})
		return shard
	}

	for _, schemaID := range pair.schemaIDs {
		stdIssues, ok := pair.stdIssues[schemaID]
		if !ok {
			if sch, ok := v.schemas[schemaID]; ok {
				stdIssues = sch.Validate(doc.Raw)
			}
		}
		for i := range stdIssues {
			stdIssues[i].DocumentURI = doc.SourceURI
		}
		shard.issues = xtypes.AppendIssues(shard.issues, stdIssues...)

		for _, site := range v.sites[schemaID] {
			result := extract.Extract(site, doc.Raw, doc.SourceURI)
			shard.issues = xtypes.AppendIssues(shard.issues, result.Issues...)
			for _, t := range result.Tuples {
				shard.records = append(shard.records, record{
					site:        site,
					schemaID:    schemaID,
					documentURI: doc.SourceURI,
					tuple:       t.Value,
					location:    t.Location,
				})
			}
		}
	}
	return shard
}
