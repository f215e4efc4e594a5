// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package impact

import (
	"sort"
)

// Target is a watched deliverable: a name and the root paths whose
// transitive dependencies gate its expensive tests.
//
// Roots are slash-separated paths relative to the scan root. A root may
// name a single module ("test/e2e/run") or a directory ("test/e2e"), in
// which case every module underneath it is a traversal seed.
type Target struct {
	// Name identifies the target in output and logs ("layer", "test/e2e").
	Name string `json:"name" yaml:"name"`

	// Roots are the target's root paths.
	Roots []string `json:"roots" yaml:"roots"`
}

// DefaultTargets returns the watched targets of the Layer SDK harness:
// the installable package and the end-to-end suite.
func DefaultTargets() []Target {
	return []Target{
		{Name: "layer", Roots: []string{"layer"}},
		{Name: "test/e2e", Roots: []string{"test/e2e"}},
	}
}

// ImpactSet is the computed impact of one watched target: every module the
// target transitively depends on plus the target's own paths.
//
// An ImpactSet is a value computed fresh per run and never persisted.
// All slices are sorted and deduplicated, so two sets over the same graph
// compare with reflect.DeepEqual.
type ImpactSet struct {
	// Target is the watched target's name.
	Target string `json:"target"`

	// Roots are the target's configured root paths, cleaned.
	Roots []string `json:"roots"`

	// Modules are the impacted module paths: the forward closure of the
	// roots plus any root path absent from the graph (kept so an empty
	// deliverable still gates on its own directory).
	Modules []string `json:"modules"`

	// Dirs are the directory-level contributions derived from Modules and
	// Roots, before glob expansion. A module contributes its parent
	// directory; a directory root contributes itself.
	Dirs []string `json:"dirs"`

	// Patterns are the serializable glob patterns for this target alone,
	// subsumed and ordered.
	Patterns []string `json:"patterns"`

	// Truncated is true when the closure stopped early. A truncated set
	// under-approximates impact and is rejected by Analyze.
	Truncated bool `json:"truncated,omitempty"`
}

// Contains reports whether the module path is in the impact set.
func (s *ImpactSet) Contains(modulePath string) bool {
	i := sort.SearchStrings(s.Modules, modulePath)
	return i < len(s.Modules) && s.Modules[i] == modulePath
}

// AnalysisStats contains metrics about one analysis run.
type AnalysisStats struct {
	// Targets is the number of watched targets analyzed.
	Targets int `json:"targets"`

	// Modules is the size of the union impact set across targets.
	Modules int `json:"modules"`

	// Patterns is the number of emitted patterns after subsumption.
	Patterns int `json:"patterns"`

	// DurationMicro is the analysis duration in microseconds.
	DurationMicro int64 `json:"duration_micro"`
}

// Analysis is the outcome of analyzing every watched target against one
// graph: the per-target impact sets and the union pattern line CI consumes.
type Analysis struct {
	// Sets holds one ImpactSet per target, in target order.
	Sets []*ImpactSet `json:"sets"`

	// Patterns is the union of all targets' directory contributions,
	// subsumed and lexicographically ordered.
	Patterns []string `json:"patterns"`

	// Line is Patterns joined with the output delimiter: the exact line
	// written to standard output.
	Line string `json:"line"`

	// Stats contains analysis metrics.
	Stats AnalysisStats `json:"stats"`
}

// Set returns the impact set for the named target, nil if absent.
func (a *Analysis) Set(target string) *ImpactSet {
	for _, s := range a.Sets {
		if s.Target == target {
			return s
		}
	}
	return nil
}
