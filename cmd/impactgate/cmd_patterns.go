// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/layerai/impactgate/services/analyzer/cicd"
	"github.com/layerai/impactgate/services/analyzer/impact"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	patternsGitHubOutput bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Emit the impact pattern line for the watched targets",
	Long: `Compute the directory glob patterns whose modification affects each
watched target and print them as one comma-joined line on stdout.

That line is the whole stdout contract: CI captures it into a step output
and feeds it to changed-file detection. A human-readable summary is
printed to stderr when stderr is a terminal or --verbose is set.

Examples:
  impactgate patterns
  impactgate patterns --root /path/to/repo
  impactgate patterns --github-output

CI usage:
  PATTERNS=$(impactgate patterns)`,
	Args: cobra.NoArgs,
	Run:  runPatterns,
}

func init() {
	patternsCmd.Flags().BoolVar(&patternsGitHubOutput, "github-output", false,
		"Append patterns/pattern_count/targets to $GITHUB_OUTPUT")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runPatterns(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := runPipeline(ctx)
	if err != nil {
		fatal("Analysis failed", err)
	}
	analysis, err := p.analyze(ctx)
	if err != nil {
		fatal("Analysis failed", err)
	}

	// Append action outputs before printing: if the append fails, the
	// run exits nonzero with an empty stdout and CI falls back to
	// running everything.
	if patternsGitHubOutput {
		if err := appendGitHubOutputs(cicd.PatternOutputs(analysis)); err != nil {
			fatal("Failed to write GitHub outputs", err)
		}
	}

	// The single stdout line.
	fmt.Println(analysis.Line)

	if verbose || isatty.IsTerminal(os.Stderr.Fd()) {
		printAnalysisSummary(os.Stderr, p, analysis)
	}
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func printAnalysisSummary(w io.Writer, p *pipeline, analysis *impact.Analysis) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Impact Analysis")
	fmt.Fprintln(w, strings.Repeat("=", 48))
	fmt.Fprintf(w, "Root:      %s\n", p.Root)
	fmt.Fprintf(w, "Files:     %d scanned, %d parsed\n",
		p.Scan.Stats.FilesScanned, p.Scan.Stats.FilesParsed)
	fmt.Fprintf(w, "Graph:     %d modules, %d edges\n",
		p.Build.Graph.NodeCount(), p.Build.Graph.EdgeCount())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Targets:")
	for _, set := range analysis.Sets {
		fmt.Fprintf(w, "  %-16s %s\n", set.Target, strings.Join(set.Patterns, ","))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Patterns:  %d\n", len(analysis.Patterns))
	fmt.Fprintf(w, "Completed in %dµs\n", analysis.Stats.DurationMicro)
}
