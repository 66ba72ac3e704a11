package xschema

import (
	"context"
	"fmt"

	"github.com/relstore/xschema/report"
	"github.com/relstore/xschema/xtypes"
)

// Run executes the three-phase pipeline (spec.md §4.F) against instances,
// pairing and validating each one against the schemas AddSchemas loaded.
// It returns a Report built from every Issue the run produced.
//
// Under cfg.ContinueOnError, every Issue across every phase is accumulated.
// Otherwise the run returns as soon as phase 1 has produced at least one
// Issue, reporting only the first — phase 2 never runs in that case
// (spec.md §7: "default fail-fast returns the first").
func (v *Validator) Run(ctx context.Context, instances []xtypes.Document) (*report.Report, error) {
	runID := newRunID()
	v.cfg.logf("run %s: starting with %d instances", runID, len(instances))

	records, phase1Issues, err := v.phase1(ctx, instances)
	if err != nil {
		return nil, fmt.Errorf("run %s phase 1: %w", runID, err)
	}

	if !v.cfg.ContinueOnError && len(phase1Issues) > 0 {
		v.cfg.logf("run %s: fail-fast on first phase-1 issue", runID)
		r := report.FromIssues(phase1Issues[:1])
		return &r, nil
	}

	phase2Issues, err := v.phase2(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("run %s phase 2: %w", runID, err)
	}

	all := xtypes.AppendIssues(phase1Issues, phase2Issues...)
	if !v.cfg.ContinueOnError && len(all) > 0 {
		r := report.FromIssues(all[:1])
		return &r, nil
	}

	v.cfg.logf("run %s: finished with %d issues", runID, len(all))
	r := report.FromIssues(all)
	return &r, nil
}
