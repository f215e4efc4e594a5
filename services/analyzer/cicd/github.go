// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cicd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/layerai/impactgate/services/analyzer/impact"
)

// GitHubOutputEnv is the environment variable GitHub Actions sets to the
// path of the step output file.
const GitHubOutputEnv = "GITHUB_OUTPUT"

// PatternOutputs builds the GitHub Actions output variables for an
// analysis run.
//
// Outputs:
//
//	patterns - The serialized pattern line, the same line written to
//	           standard output.
//	pattern_count - Number of patterns after subsumption.
//	targets - Number of watched targets analyzed.
func PatternOutputs(analysis *impact.Analysis) map[string]string {
	return map[string]string{
		"patterns":      analysis.Line,
		"pattern_count": fmt.Sprintf("%d", len(analysis.Patterns)),
		"targets":       fmt.Sprintf("%d", analysis.Stats.Targets),
	}
}

// GateOutputs builds the GitHub Actions output variables for a gate
// decision.
//
// Outputs:
//
//	should_run - "true" when the expensive tests must run.
//	matched_count - Number of changed files that hit a pattern.
//	matched_files - Comma-joined matched paths.
func GateOutputs(result *GateResult) map[string]string {
	return map[string]string{
		"should_run":    fmt.Sprintf("%t", result.ShouldRun),
		"matched_count": fmt.Sprintf("%d", len(result.MatchedFiles)),
		"matched_files": strings.Join(result.MatchedFiles, ","),
	}
}

// AppendActionOutputs appends output variables to a GitHub Actions output
// file.
//
// Description:
//
//	Writes "key=value" lines in sorted key order, the format the runner
//	reads from $GITHUB_OUTPUT. Values must be single-line; a value with a
//	newline would need the heredoc form and none of ours can contain one.
//
// Inputs:
//
//	outputPath - Path to the output file, usually $GITHUB_OUTPUT.
//	outputs - The variables to append.
//
// Outputs:
//
//	error - Non-nil when the file cannot be written or a value is
//	        multi-line.
func AppendActionOutputs(outputPath string, outputs map[string]string) error {
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := outputs[k]
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("output %q has a multi-line value", k)
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
		sb.WriteByte('\n')
	}

	f, err := os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening action output file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("writing action outputs: %w", err)
	}
	return nil
}
