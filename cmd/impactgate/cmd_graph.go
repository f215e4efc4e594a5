// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/layerai/impactgate/services/analyzer/graph"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var graphFormat string

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Dump the dependency graph for debugging",
	Long: `Build the dependency graph and print it in a chosen format.

This is a debug command: unlike patterns and check, its stdout is meant
for humans and tooling such as Graphviz, not for CI capture.

Formats:
  stats - module and edge counts with per-language breakdown (default)
  dot   - Graphviz digraph of import edges
  json  - stats, module paths, and edges as one JSON document

Examples:
  impactgate graph
  impactgate graph --format dot | dot -Tsvg -o imports.svg
  impactgate graph --format json | jq '.stats.edge_count'`,
	Args: cobra.NoArgs,
	Run:  runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphFormat, "format", "stats",
		"Output format: stats, dot, json")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runGraph(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if graphFormat != "stats" && graphFormat != "dot" && graphFormat != "json" {
		fatal("Invalid format", fmt.Errorf("unknown format %q, want stats, dot, or json", graphFormat))
	}

	p, err := runPipeline(ctx)
	if err != nil {
		fatal("Graph build failed", err)
	}

	g := p.Build.Graph
	switch graphFormat {
	case "dot":
		outputGraphDot(g)
	case "json":
		outputGraphJSON(g)
	default:
		outputGraphStats(p, g)
	}
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputGraphStats(p *pipeline, g *graph.Graph) {
	stats := g.Stats()

	fmt.Println("Dependency Graph")
	fmt.Println(strings.Repeat("=", 48))
	fmt.Printf("Root:     %s\n", stats.Root)
	fmt.Printf("Modules:  %d\n", stats.NodeCount)
	fmt.Printf("Edges:    %d\n", stats.EdgeCount)
	fmt.Printf("Scanned:  %d files (%d parsed, %d failed)\n",
		p.Scan.Stats.FilesScanned, p.Scan.Stats.FilesParsed, p.Scan.Stats.FilesFailed)

	if len(stats.NodesByLanguage) > 0 {
		fmt.Println()
		fmt.Println("By language:")
		languages := make([]string, 0, len(stats.NodesByLanguage))
		for lang := range stats.NodesByLanguage {
			languages = append(languages, lang)
		}
		sort.Strings(languages)
		for _, lang := range languages {
			fmt.Printf("  %-10s %d\n", lang, stats.NodesByLanguage[lang])
		}
	}

	if p.Build.Incomplete {
		fmt.Println()
		fmt.Println("Warning: graph is incomplete, some files failed to parse.")
	}
}

func outputGraphDot(g *graph.Graph) {
	fmt.Println("digraph imports {")
	fmt.Println("  rankdir=LR;")
	for _, edge := range g.Edges() {
		fmt.Printf("  %q -> %q;\n", edge.FromID, edge.ToID)
	}
	fmt.Println("}")
}

func outputGraphJSON(g *graph.Graph) {
	doc := struct {
		Stats   graph.GraphStats `json:"stats"`
		Modules []string         `json:"modules"`
		Edges   []*graph.Edge    `json:"edges"`
	}{
		Stats:   g.Stats(),
		Modules: g.Paths(),
		Edges:   g.Edges(),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		fatal("Failed to encode JSON", err)
	}
}
