// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cicd connects impact analysis to CI pipelines.
//
// The gate answers the question CI actually asks: given the files a change
// touches and the patterns the analyzer emitted, do the expensive tests
// need to run? The package also parses unified diffs into changed file
// lists and writes GitHub Actions output variables.
package cicd

import (
	"path"
	"sort"
	"strings"
)

// Exit codes for CI gating.
const (
	ExitSuccess   = 0  // Analysis succeeded; for check: no impacted file changed
	ExitError     = 2  // Analysis failed before producing a usable line
	ExitShouldRun = 10 // Gate positive: an impacted file changed
)

// GateResult is the outcome of matching changed files against patterns.
type GateResult struct {
	// ShouldRun is true when at least one changed file is impacted.
	ShouldRun bool `json:"should_run"`

	// Patterns are the impact patterns the gate evaluated.
	Patterns []string `json:"patterns"`

	// ChangedFiles are the cleaned changed paths, sorted.
	ChangedFiles []string `json:"changed_files"`

	// MatchedFiles are the changed files that hit a pattern, sorted.
	MatchedFiles []string `json:"matched_files,omitempty"`

	// MatchedBy maps each matched file to the first pattern that hit it,
	// in pattern order. For explaining gate decisions in logs.
	MatchedBy map[string]string `json:"matched_by,omitempty"`
}

// Gate matches changed file paths against impact patterns.
//
// Thread Safety: Gate is immutable after construction and safe for
// concurrent use.
type Gate struct {
	patterns []string
}

// NewGate creates a gate over the given impact patterns.
func NewGate(patterns []string) *Gate {
	return &Gate{patterns: patterns}
}

// Evaluate matches changed files against the gate's patterns.
//
// Description:
//
//	Each changed path is cleaned and tested against every pattern in
//	order. "dir/**" matches the path "dir" itself and anything under
//	"dir/"; "**" matches everything. Matching is pure string work on
//	slash-separated relative paths, the same form both the analyzer and
//	git diffs produce.
//
// Inputs:
//
//	changedFiles - Paths relative to the repository root. Duplicates
//	               and "./" prefixes are tolerated.
//
// Outputs:
//
//	*GateResult - The gate decision with per-file match attribution.
func (g *Gate) Evaluate(changedFiles []string) *GateResult {
	result := &GateResult{
		Patterns:     g.patterns,
		ChangedFiles: cleanFiles(changedFiles),
	}

	for _, file := range result.ChangedFiles {
		for _, pattern := range g.patterns {
			if MatchesPattern(pattern, file) {
				if result.MatchedBy == nil {
					result.MatchedBy = make(map[string]string)
				}
				result.MatchedFiles = append(result.MatchedFiles, file)
				result.MatchedBy[file] = pattern
				break
			}
		}
	}

	result.ShouldRun = len(result.MatchedFiles) > 0
	return result
}

// MatchesPattern reports whether a changed file path hits one impact
// pattern. Patterns are the analyzer's output shape: "**" or "dir/**".
func MatchesPattern(pattern, file string) bool {
	if pattern == "**" {
		return true
	}
	stem, ok := strings.CutSuffix(pattern, "/**")
	if !ok {
		// Not a directory glob; exact match only.
		return pattern == file
	}
	return file == stem || strings.HasPrefix(file, stem+"/")
}

// cleanFiles normalizes, deduplicates, and sorts changed paths.
func cleanFiles(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	cleaned := make([]string, 0, len(files))
	for _, f := range files {
		c := path.Clean(strings.TrimSpace(f))
		if c == "" || c == "." {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cleaned = append(cleaned, c)
	}
	sort.Strings(cleaned)
	return cleaned
}
