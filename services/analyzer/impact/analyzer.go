// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package impact

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/layerai/impactgate/services/analyzer/graph"
)

// AnalyzerOptions configures impact analysis.
type AnalyzerOptions struct {
	// StrictPatterns disables ancestor subsumption; only exact duplicate
	// patterns are removed. Default: false (subsumption on).
	StrictPatterns bool

	// ClosureLimit caps the number of modules per closure (0 = unlimited).
	// A capped closure marks the impact set Truncated and fails Analyze.
	ClosureLimit int

	// ClosureMaxDepth caps the traversal depth (0 = unlimited).
	ClosureMaxDepth int
}

// AnalyzerOption is a functional option for configuring the Analyzer.
type AnalyzerOption func(*AnalyzerOptions)

// WithStrictPatterns toggles exact-dedup-only pattern behavior.
func WithStrictPatterns(strict bool) AnalyzerOption {
	return func(o *AnalyzerOptions) {
		o.StrictPatterns = strict
	}
}

// WithClosureLimit caps the number of modules per closure.
func WithClosureLimit(n int) AnalyzerOption {
	return func(o *AnalyzerOptions) {
		o.ClosureLimit = n
	}
}

// WithClosureMaxDepth caps the closure traversal depth.
func WithClosureMaxDepth(d int) AnalyzerOption {
	return func(o *AnalyzerOptions) {
		o.ClosureMaxDepth = d
	}
}

// Analyzer computes impact sets for watched targets against one frozen
// dependency graph.
//
// Description:
//
//	For each target, the analyzer resolves the target's root paths to
//	traversal seeds (a root naming a module seeds that module; a root
//	naming a directory seeds every module underneath it), computes the
//	forward dependency closure, and derives the directory-level pattern
//	contributions. Analyze unions the per-target contributions into the
//	single serialized line CI consumes.
//
//	Results are deterministic for a fixed graph and fixed targets:
//	closure traversal is order-independent by construction (set
//	semantics), and every output slice is sorted before it is returned.
//
// Thread Safety:
//
//	Analyzer is safe for concurrent use as long as the underlying graph
//	is frozen. It holds no mutable state.
type Analyzer struct {
	graph   *graph.Graph
	options AnalyzerOptions
}

// NewAnalyzer creates an Analyzer over a frozen graph.
//
// Inputs:
//
//	g - The dependency graph. Must be non-nil and frozen.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Analyzer - The analyzer instance.
//	error - ErrNilGraph when g is nil.
func NewAnalyzer(g *graph.Graph, opts ...AnalyzerOption) (*Analyzer, error) {
	if g == nil {
		return nil, ErrNilGraph
	}

	options := AnalyzerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return &Analyzer{graph: g, options: options}, nil
}

// Impact computes the impact set of one watched target.
//
// Description:
//
//	Seeds a forward closure from the target's roots and folds the result
//	into an ImpactSet. Three root shapes are handled:
//
//	  - root is a module ("test/e2e/run"): the module seeds the closure
//	    and contributes its parent directory.
//	  - root is a directory ("test/e2e"): every module underneath seeds
//	    the closure; the directory contributes itself, so files in the
//	    directory that are not modules (fixtures, configs) still gate.
//	  - root is absent from the graph: no seeds; the impact set contains
//	    just the root path, which contributes itself as a directory. An
//	    empty deliverable still gates on its own location.
//
// Inputs:
//
//	ctx - Context for cancellation, honored by the closure traversal.
//	target - The watched target. Roots must be non-empty.
//
// Outputs:
//
//	*ImpactSet - Sorted modules, directory contributions, and patterns.
//	error - Non-nil when the target has no roots or traversal fails.
func (a *Analyzer) Impact(ctx context.Context, target Target) (*ImpactSet, error) {
	if len(target.Roots) == 0 {
		return nil, fmt.Errorf("%w: target %q", ErrNoTargets, target.Name)
	}

	roots := cleanRoots(target.Roots)

	seeds := make([]string, 0, len(roots))
	moduleSet := make(map[string]struct{})
	dirSet := make(map[string]struct{})

	for _, root := range roots {
		nodes := a.graph.ModulesUnder(root)

		if len(nodes) == 0 {
			// Nothing in the graph under this root. Keep the root itself
			// so the target still gates on its own path.
			moduleSet[root] = struct{}{}
			dirSet[root] = struct{}{}
			continue
		}

		if !a.graph.HasNode(root) {
			// Directory root: it contributes its own directory no matter
			// where its modules live.
			dirSet[root] = struct{}{}
		}

		for _, node := range nodes {
			seeds = append(seeds, node.ID)
		}
	}

	var queryOpts []graph.QueryOption
	if a.options.ClosureLimit > 0 {
		queryOpts = append(queryOpts, graph.WithLimit(a.options.ClosureLimit))
	}
	if a.options.ClosureMaxDepth > 0 {
		queryOpts = append(queryOpts, graph.WithMaxDepth(a.options.ClosureMaxDepth))
	}

	result, err := a.graph.DependencyClosure(ctx, seeds, queryOpts...)
	if err != nil {
		return nil, fmt.Errorf("closure for target %q: %w", target.Name, err)
	}

	for _, modulePath := range result.VisitedNodes {
		moduleSet[modulePath] = struct{}{}
		if node, ok := a.graph.GetNode(modulePath); ok {
			dirSet[node.Module.Dir()] = struct{}{}
		}
	}

	modules := make([]string, 0, len(moduleSet))
	for m := range moduleSet {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	return &ImpactSet{
		Target:    target.Name,
		Roots:     roots,
		Modules:   modules,
		Dirs:      dirs,
		Patterns:  Patterns(dirs, a.options.StrictPatterns),
		Truncated: result.Truncated,
	}, nil
}

// Analyze computes impact sets for every target and the union pattern line.
//
// Description:
//
//	Runs Impact per target in the given order, then unions the directory
//	contributions, subsumes, orders, and serializes them. A truncated
//	closure fails the whole analysis: emitting an under-approximated
//	pattern list would let CI skip tests that should have run.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	targets - The watched targets. Must be non-empty.
//
// Outputs:
//
//	*Analysis - Per-target sets plus the union patterns and line.
//	error - ErrNoTargets, ErrTruncated, ErrEncoding, or a traversal error.
func (a *Analyzer) Analyze(ctx context.Context, targets []Target) (*Analysis, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	start := time.Now()

	analysis := &Analysis{
		Sets: make([]*ImpactSet, 0, len(targets)),
	}

	unionModules := make(map[string]struct{})
	unionDirs := make(map[string]struct{})

	for _, target := range targets {
		set, err := a.Impact(ctx, target)
		if err != nil {
			return nil, err
		}
		if set.Truncated {
			return nil, fmt.Errorf("%w: target %q", ErrTruncated, target.Name)
		}

		analysis.Sets = append(analysis.Sets, set)
		for _, m := range set.Modules {
			unionModules[m] = struct{}{}
		}
		for _, d := range set.Dirs {
			unionDirs[d] = struct{}{}
		}
	}

	dirs := make([]string, 0, len(unionDirs))
	for d := range unionDirs {
		dirs = append(dirs, d)
	}

	analysis.Patterns = Patterns(dirs, a.options.StrictPatterns)

	line, err := Serialize(analysis.Patterns)
	if err != nil {
		return nil, err
	}
	analysis.Line = line

	analysis.Stats = AnalysisStats{
		Targets:       len(targets),
		Modules:       len(unionModules),
		Patterns:      len(analysis.Patterns),
		DurationMicro: time.Since(start).Microseconds(),
	}

	return analysis, nil
}

// cleanRoots normalizes target root paths: slash-separated, no trailing
// slash, deduplicated, original order preserved.
func cleanRoots(roots []string) []string {
	seen := make(map[string]struct{}, len(roots))
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		r := path.Clean(strings.TrimSuffix(root, "/"))
		if r == "" {
			r = "."
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		cleaned = append(cleaned, r)
	}
	return cleaned
}
