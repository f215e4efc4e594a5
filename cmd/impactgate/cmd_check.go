// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/layerai/impactgate/services/analyzer/cicd"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	// Changed-file sources
	checkChanged  []string
	checkStdin    bool
	checkDiffFile string

	// Gate flags
	checkPatterns     string
	checkExitCode     bool
	checkGitHubOutput bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Gate expensive tests on a set of changed files",
	Long: `Decide whether the watched targets are affected by a set of changed
files. Prints exactly one line on stdout: should_run=true or
should_run=false.

Changed files come from --changed, --stdin (one path per line, e.g.
"git diff --name-only"), or --diff (a unified diff file, "-" for stdin).
Patterns are computed from the repository unless --patterns supplies a
precomputed line.

The exit code is 0 for both outcomes so callers gate on stdout; --exit-code
opts into exit 10 for a positive gate, keeping 2 distinct for errors.

Examples:
  impactgate check --changed layer/model.py,README.md
  git diff --name-only origin/main | impactgate check --stdin
  git diff origin/main | impactgate check --diff -
  impactgate check --changed docs/a.md --patterns "layer/**,test/e2e/**"`,
	Args: cobra.NoArgs,
	Run:  runCheck,
}

func init() {
	// Changed-file sources
	checkCmd.Flags().StringSliceVar(&checkChanged, "changed", nil,
		"Changed file paths (comma separated or repeated)")
	checkCmd.Flags().BoolVar(&checkStdin, "stdin", false,
		"Read changed file paths from stdin, one per line")
	checkCmd.Flags().StringVar(&checkDiffFile, "diff", "",
		"Read changed files from a unified diff file (- for stdin)")

	// Gate flags
	checkCmd.Flags().StringVar(&checkPatterns, "patterns", "",
		"Comma-joined patterns to gate on instead of computing them")
	checkCmd.Flags().BoolVar(&checkExitCode, "exit-code", false,
		"Exit 10 when the gate is positive instead of always 0")
	checkCmd.Flags().BoolVar(&checkGitHubOutput, "github-output", false,
		"Append should_run/matched_count/matched_files to $GITHUB_OUTPUT")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runCheck(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changed, err := collectChangedFiles()
	if err != nil {
		fatal("Failed to read changed files", err)
	}

	patterns, err := gatePatterns(ctx)
	if err != nil {
		fatal("Failed to compute patterns", err)
	}

	gate := cicd.NewGate(patterns)
	result := gate.Evaluate(changed)

	if checkGitHubOutput {
		if err := appendGitHubOutputs(cicd.GateOutputs(result)); err != nil {
			fatal("Failed to write GitHub outputs", err)
		}
	}

	// The single stdout line.
	fmt.Printf("should_run=%t\n", result.ShouldRun)

	if verbose || isatty.IsTerminal(os.Stderr.Fd()) {
		printGateSummary(os.Stderr, result)
	}

	if checkExitCode && result.ShouldRun {
		closeLogger()
		os.Exit(cicd.ExitShouldRun)
	}
}

// collectChangedFiles reads the changed-file set from the selected source.
func collectChangedFiles() ([]string, error) {
	modeCount := 0
	if len(checkChanged) > 0 {
		modeCount++
	}
	if checkStdin {
		modeCount++
	}
	if checkDiffFile != "" {
		modeCount++
	}
	if modeCount == 0 {
		return nil, errors.New("one of --changed, --stdin, or --diff is required")
	}
	if modeCount > 1 {
		return nil, errors.New("use only one of --changed, --stdin, or --diff")
	}

	switch {
	case len(checkChanged) > 0:
		return checkChanged, nil
	case checkStdin:
		return readChangedList(os.Stdin)
	default:
		return readChangedDiff(checkDiffFile)
	}
}

func readChangedList(r io.Reader) ([]string, error) {
	var files []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			files = append(files, line)
		}
	}
	return files, scanner.Err()
}

func readChangedDiff(path string) ([]string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return cicd.ChangedFilesFromDiff(string(data))
}

// gatePatterns returns the patterns to gate on: the --patterns override,
// or a fresh analysis of the repository.
func gatePatterns(ctx context.Context) ([]string, error) {
	if checkPatterns != "" {
		var patterns []string
		for _, p := range strings.Split(checkPatterns, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		return patterns, nil
	}

	p, err := runPipeline(ctx)
	if err != nil {
		return nil, err
	}
	analysis, err := p.analyze(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.Patterns, nil
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func printGateSummary(w io.Writer, result *cicd.GateResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Changed files: %d\n", len(result.ChangedFiles))
	fmt.Fprintf(w, "Matched:       %d\n", len(result.MatchedFiles))
	for _, f := range result.MatchedFiles {
		fmt.Fprintf(w, "  %s  (%s)\n", f, result.MatchedBy[f])
	}
}
