// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"github.com/layerai/impactgate/services/analyzer/graph"
	"github.com/layerai/impactgate/services/analyzer/impact"
)

// ServiceVersion is the analyzer service version.
const ServiceVersion = "0.1.0"

// BuildRequest is the request body for POST /v1/impact/graph.
type BuildRequest struct {
	// ProjectRoot is the absolute path to the repository root. Required.
	ProjectRoot string `json:"project_root" binding:"required"`

	// Languages narrows scanning to the given languages. Empty means the
	// project config (or all registered parsers) decides.
	Languages []string `json:"languages"`

	// IgnoreDirs overrides the directory names skipped during scanning.
	IgnoreDirs []string `json:"ignore_dirs"`
}

// BuildResponse is the response for POST /v1/impact/graph.
type BuildResponse struct {
	// GraphID is the unique identifier for this graph.
	GraphID string `json:"graph_id"`

	// IsRefresh indicates this build replaced a cached graph for the
	// same project root.
	IsRefresh bool `json:"is_refresh"`

	// PreviousID is the ID of the replaced graph (if IsRefresh is true).
	PreviousID string `json:"previous_id,omitempty"`

	// Root is the validated project root the graph covers.
	Root string `json:"root"`

	// FilesScanned is the number of candidate files found.
	FilesScanned int `json:"files_scanned"`

	// FilesParsed is the number of files parsed successfully.
	FilesParsed int `json:"files_parsed"`

	// Modules is the number of modules in the graph.
	Modules int `json:"modules"`

	// Edges is the number of import edges in the graph.
	Edges int `json:"edges"`

	// BuildTimeMs is the total scan plus build time in milliseconds.
	BuildTimeMs int64 `json:"build_time_ms"`

	// Incomplete is true when the build stopped before covering every
	// input file.
	Incomplete bool `json:"incomplete,omitempty"`

	// Diagnostics lists non-fatal per-file problems.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// AnalyzeRequest is the request body for POST /v1/impact/analyze.
//
// Exactly one of GraphID or ProjectRoot selects the graph: GraphID reuses
// a cached graph, ProjectRoot reuses a fresh cached graph for that root or
// builds one. When both are set, GraphID wins.
type AnalyzeRequest struct {
	// GraphID selects a cached graph.
	GraphID string `json:"graph_id"`

	// ProjectRoot selects (or builds) a graph for this repository root.
	ProjectRoot string `json:"project_root"`

	// Targets overrides the watched targets. Empty means the targets from
	// the project config captured at build time.
	Targets []impact.Target `json:"targets"`

	// Strict overrides strict pattern validation. Nil means the project
	// config decides.
	Strict *bool `json:"strict"`
}

// AnalyzeResponse is the response for POST /v1/impact/analyze.
type AnalyzeResponse struct {
	// GraphID is the graph the analysis ran against.
	GraphID string `json:"graph_id"`

	// Root is the project root the graph covers.
	Root string `json:"root"`

	// Line is the comma-joined pattern line, exactly as the CLI would
	// print it.
	Line string `json:"line"`

	// Patterns is the union of all targets' patterns, ordered.
	Patterns []string `json:"patterns"`

	// Sets holds one impact set per target, in target order.
	Sets []*impact.ImpactSet `json:"sets"`

	// Stats contains analysis metrics.
	Stats impact.AnalysisStats `json:"stats"`
}

// GraphInfoResponse is the response for GET /v1/impact/graph/:id.
type GraphInfoResponse struct {
	// Stats describes the cached graph.
	Stats graph.GraphStats `json:"stats"`

	// Root is the project root the graph covers.
	Root string `json:"root"`

	// Targets are the watched targets captured from the project config
	// at build time.
	Targets []impact.Target `json:"targets"`

	// BuiltAtMilli is when the graph was built.
	BuiltAtMilli int64 `json:"built_at_milli"`

	// ExpiresAtMilli is when the graph expires (0 = never).
	ExpiresAtMilli int64 `json:"expires_at_milli,omitempty"`
}

// HealthResponse is the response for GET /v1/impact/health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/impact/ready.
type ReadyResponse struct {
	// Ready is true if the service is ready to accept requests.
	Ready bool `json:"ready"`

	// GraphCount is the number of cached graphs.
	GraphCount int `json:"graph_count"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the stable error code (optional).
	Code string `json:"code,omitempty"`
}

// CachedGraph holds a built graph and the analysis inputs captured with it.
type CachedGraph struct {
	// Graph is the frozen dependency graph.
	Graph *graph.Graph

	// Root is the project root the graph was built from.
	Root string

	// Targets are the watched targets from the project config.
	Targets []impact.Target

	// Strict is the strict-pattern setting from the project config.
	Strict bool

	// BuiltAtMilli is when the graph was built.
	BuiltAtMilli int64

	// ExpiresAtMilli is when the graph expires (0 = never).
	ExpiresAtMilli int64
}

// Expired reports whether the cache entry is past its TTL at the given
// Unix-milli timestamp.
func (c *CachedGraph) Expired(nowMilli int64) bool {
	return c.ExpiresAtMilli > 0 && nowMilli > c.ExpiresAtMilli
}
