// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import "fmt"

// FileError records a parse result that could not be folded into the graph.
//
// Thread Safety: FileError is an immutable value type, safe for concurrent
// reads.
type FileError struct {
	// FilePath is the path of the file that failed.
	FilePath string `json:"file_path"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.FilePath, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FileError) Unwrap() error {
	return e.Err
}

// BuildStats contains metrics about a graph build operation.
//
// Thread Safety: BuildStats is a value type. Safe to copy and read
// concurrently after the build completes.
type BuildStats struct {
	// FilesProcessed is the number of parse results folded into the graph.
	FilesProcessed int `json:"files_processed"`

	// FilesFailed is the number of parse results that errored.
	FilesFailed int `json:"files_failed"`

	// NodesCreated is the number of modules added.
	NodesCreated int `json:"nodes_created"`

	// EdgesCreated is the number of import edges added.
	EdgesCreated int `json:"edges_created"`

	// ExternalImports is the number of import statements that resolved to
	// nothing inside the tree (stdlib, third-party, or outside the root)
	// and were excluded from the graph.
	ExternalImports int `json:"external_imports"`

	// DurationMilli is the build duration in milliseconds.
	DurationMilli int64 `json:"duration_milli"`

	// DurationMicro is the build duration in microseconds, for
	// sub-millisecond builds.
	DurationMicro int64 `json:"duration_micro"`
}

// BuildResult contains the outcome of a graph build operation.
//
// Description:
//
//	Aggregates the built graph with any errors encountered during
//	construction. A build can partially succeed: some files fold in while
//	others fail. Callers should check HasErrors() and decide whether
//	partial results are acceptable.
//
// Thread Safety: BuildResult is safe for concurrent reads after the build
// completes. The embedded Graph is frozen.
type BuildResult struct {
	// Graph is the built dependency graph, frozen and ready to query.
	// Non-nil even when errors occurred (may be partial).
	Graph *Graph `json:"-"`

	// FileErrors contains per-file failures, in input order.
	FileErrors []FileError `json:"file_errors,omitempty"`

	// Stats contains build metrics.
	Stats BuildStats `json:"stats"`

	// Incomplete is true when the build stopped early (context cancelled
	// or a graph limit was hit) and the graph does not cover every input.
	Incomplete bool `json:"incomplete"`
}

// HasErrors returns true if any file failed during the build.
func (r *BuildResult) HasErrors() bool {
	return len(r.FileErrors) > 0
}

// TotalErrors returns the number of files that failed.
func (r *BuildResult) TotalErrors() int {
	return len(r.FileErrors)
}

// Success returns true if the build completed fully with no errors.
func (r *BuildResult) Success() bool {
	return !r.Incomplete && len(r.FileErrors) == 0
}
