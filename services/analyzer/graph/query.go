// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"fmt"
)

// contextCheckInterval is how often to check context during traversal.
const contextCheckInterval = 100

// TraversalResult wraps the outcome of a graph traversal.
type TraversalResult struct {
	// Roots contains the module paths traversal began from, deduplicated,
	// in the order given. Roots not present in the graph are omitted.
	Roots []string

	// VisitedNodes contains all visited module paths in traversal order,
	// roots included.
	VisitedNodes []string

	// Edges contains all edges that were traversed.
	Edges []*Edge

	// Depth is the maximum depth reached during traversal.
	Depth int

	// Truncated indicates the traversal was stopped early due to
	// limit or context cancellation. A truncated closure is an
	// under-approximation and must not be acted on.
	Truncated bool
}

// QueryOptions configures traversal behavior.
type QueryOptions struct {
	// Limit is the maximum number of visited nodes (0 = unlimited).
	Limit int

	// MaxDepth is the maximum traversal depth (0 = unlimited).
	MaxDepth int
}

// DefaultQueryOptions returns the default traversal configuration.
//
// Defaults are unbounded. Change analysis needs the full transitive
// closure; truncating it silently would understate impact.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{}
}

// QueryOption is a functional option for configuring traversals.
type QueryOption func(*QueryOptions)

// WithLimit caps the number of visited nodes. Values <= 0 mean unlimited.
func WithLimit(n int) QueryOption {
	return func(o *QueryOptions) {
		if n < 0 {
			n = 0
		}
		o.Limit = n
	}
}

// WithMaxDepth caps the traversal depth. Values <= 0 mean unlimited.
func WithMaxDepth(d int) QueryOption {
	return func(o *QueryOptions) {
		if d < 0 {
			d = 0
		}
		o.MaxDepth = d
	}
}

// applyOptions applies functional options and returns the configured options.
func applyOptions(opts []QueryOption) QueryOptions {
	options := DefaultQueryOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Validate checks that the graph is in a consistent state for querying.
//
// Description:
//
//	Verifies all edges reference existing nodes. Should be called once
//	after build, before queries.
//
// Outputs:
//
//	error - Non-nil if the graph is corrupt (dangling edges)
func (g *Graph) Validate() error {
	for i, edge := range g.edges {
		if _, ok := g.nodes[edge.FromID]; !ok {
			return fmt.Errorf("edge[%d]: source node %q not found", i, edge.FromID)
		}
		if _, ok := g.nodes[edge.ToID]; !ok {
			return fmt.Errorf("edge[%d]: target node %q not found", i, edge.ToID)
		}
	}
	return nil
}

// DependencyClosure returns the forward transitive closure of the given
// module paths.
//
// Description:
//
//	Performs iterative BFS following import edges in the "A imports B"
//	direction from every root at once. The result contains the roots
//	themselves plus every module reachable through imports, each exactly
//	once, cycle-safe. Roots not present in the graph are skipped, not an
//	error: a watched path with no modules simply contributes nothing.
//
// Inputs:
//
//	ctx - Context for cancellation (checked every 100 nodes)
//	roots - Module paths to start from. Duplicates are collapsed.
//	opts - Traversal options (Limit, MaxDepth; default unbounded)
//
// Outputs:
//
//	*TraversalResult - Visited modules and edges, with Truncated flag
//	error - Reserved; currently always nil
func (g *Graph) DependencyClosure(ctx context.Context, roots []string, opts ...QueryOption) (*TraversalResult, error) {
	options := applyOptions(opts)

	result := &TraversalResult{
		Roots:        make([]string, 0, len(roots)),
		VisitedNodes: make([]string, 0),
		Edges:        make([]*Edge, 0),
	}

	visited := make(map[string]bool)
	type queueItem struct {
		nodeID string
		depth  int
	}

	queue := make([]queueItem, 0, len(roots))
	for _, root := range roots {
		if visited[root] {
			continue
		}
		if _, ok := g.nodes[root]; !ok {
			continue
		}
		visited[root] = true
		result.Roots = append(result.Roots, root)
		queue = append(queue, queueItem{root, 0})
	}

	checkCounter := 0

	for len(queue) > 0 {
		checkCounter++
		if checkCounter%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				result.Truncated = true
				return result, nil
			}
		}

		item := queue[0]
		queue = queue[1:]

		result.VisitedNodes = append(result.VisitedNodes, item.nodeID)
		if item.depth > result.Depth {
			result.Depth = item.depth
		}

		if options.Limit > 0 && len(result.VisitedNodes) >= options.Limit {
			result.Truncated = true
			break
		}

		if options.MaxDepth > 0 && item.depth >= options.MaxDepth {
			continue
		}

		node := g.nodes[item.nodeID]
		for _, edge := range node.Outgoing {
			if visited[edge.ToID] {
				continue // Cycle detection
			}
			visited[edge.ToID] = true
			result.Edges = append(result.Edges, edge)
			queue = append(queue, queueItem{edge.ToID, item.depth + 1})
		}
	}

	return result, nil
}

// Dependents returns every module that transitively imports the given one.
//
// Description:
//
//	Performs iterative BFS following import edges backwards (finding
//	importers) from the given module. Useful for answering "what breaks
//	if this module changes" interactively.
//
// Inputs:
//
//	ctx - Context for cancellation (checked every 100 nodes)
//	modulePath - Module to find dependents for
//	opts - Traversal options (Limit, MaxDepth; default unbounded)
//
// Outputs:
//
//	*TraversalResult - Visited modules and edges, with Truncated flag
//	error - Non-nil if the module is not in the graph
func (g *Graph) Dependents(ctx context.Context, modulePath string, opts ...QueryOption) (*TraversalResult, error) {
	options := applyOptions(opts)

	if _, ok := g.nodes[modulePath]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, modulePath)
	}

	result := &TraversalResult{
		Roots:        []string{modulePath},
		VisitedNodes: make([]string, 0),
		Edges:        make([]*Edge, 0),
	}

	visited := make(map[string]bool)
	type queueItem struct {
		nodeID string
		depth  int
	}
	queue := []queueItem{{modulePath, 0}}
	visited[modulePath] = true
	checkCounter := 0

	for len(queue) > 0 {
		checkCounter++
		if checkCounter%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				result.Truncated = true
				return result, nil
			}
		}

		item := queue[0]
		queue = queue[1:]

		result.VisitedNodes = append(result.VisitedNodes, item.nodeID)
		if item.depth > result.Depth {
			result.Depth = item.depth
		}

		if options.Limit > 0 && len(result.VisitedNodes) >= options.Limit {
			result.Truncated = true
			break
		}

		if options.MaxDepth > 0 && item.depth >= options.MaxDepth {
			continue
		}

		node := g.nodes[item.nodeID]
		for _, edge := range node.Incoming {
			if visited[edge.FromID] {
				continue // Cycle detection
			}
			visited[edge.FromID] = true
			result.Edges = append(result.Edges, edge)
			queue = append(queue, queueItem{edge.FromID, item.depth + 1})
		}
	}

	return result, nil
}
