// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package impact computes change-impact sets for watched targets.
//
// A watched target is a deliverable (the installable package, the end-to-end
// test suite) whose roots name modules or directories in the dependency
// graph. The impact set of a target is everything the target transitively
// imports, unioned with the target's own paths: if any file under one of
// those paths changes, the target's expensive tests must run.
//
// Impact sets serialize to directory-level glob patterns ("layer/**"),
// ancestor-subsumed, lexicographically ordered, and comma-joined into the
// single line CI consumes. The serialization is deterministic: the same
// graph and the same targets always produce byte-identical output.
package impact

import "errors"

// Sentinel errors for impact analysis.
var (
	// ErrEncoding indicates an emitted path contains the output delimiter.
	// The source tree's naming broke the serialization contract; the run
	// fails before anything is written to standard output.
	ErrEncoding = errors.New("path contains the output delimiter")

	// ErrNoTargets indicates analysis was requested with an empty target
	// set. An empty pattern line would make the CI gate skip every test,
	// which is never what a misconfiguration should do.
	ErrNoTargets = errors.New("no watched targets configured")

	// ErrNilGraph indicates the analyzer was constructed without a graph.
	ErrNilGraph = errors.New("graph is nil")

	// ErrTruncated indicates a closure stopped early (limit or
	// cancellation). A truncated impact set under-approximates and must
	// not gate CI.
	ErrTruncated = errors.New("impact set truncated")
)
