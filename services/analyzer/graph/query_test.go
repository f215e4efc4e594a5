// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// Helper to wire a frozen graph from module paths and edges.
func buildFrozenGraph(t *testing.T, modules []string, edges [][2]string) *Graph {
	t.Helper()
	g := NewGraph("/repo")
	for _, m := range modules {
		if _, err := g.AddNode(makeModule(m, m+".py", "python")); err != nil {
			t.Fatalf("AddNode(%q) failed: %v", m, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1], makeLocation(e[0]+".py", 1)); err != nil {
			t.Fatalf("AddEdge(%s -> %s) failed: %v", e[0], e[1], err)
		}
	}
	g.Freeze()
	return g
}

func visitedSet(result *TraversalResult) map[string]bool {
	set := make(map[string]bool, len(result.VisitedNodes))
	for _, id := range result.VisitedNodes {
		set[id] = true
	}
	return set
}

func TestGraph_Validate(t *testing.T) {
	t.Run("consistent graph", func(t *testing.T) {
		g := buildFrozenGraph(t,
			[]string{"a", "b"},
			[][2]string{{"a", "b"}},
		)
		if err := g.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("dangling edge", func(t *testing.T) {
		g := buildFrozenGraph(t, []string{"a"}, nil)
		g.edges = append(g.edges, &Edge{FromID: "ghost", ToID: "a"})

		if err := g.Validate(); err == nil {
			t.Error("expected error for dangling edge")
		}
	})
}

func TestGraph_DependencyClosure(t *testing.T) {
	t.Run("linear chain", func(t *testing.T) {
		g := buildFrozenGraph(t,
			[]string{"a", "b", "c", "d"},
			[][2]string{{"a", "b"}, {"b", "c"}},
		)

		result, err := g.DependencyClosure(context.Background(), []string{"a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		set := visitedSet(result)
		if len(set) != 3 || !set["a"] || !set["b"] || !set["c"] {
			t.Errorf("closure = %v, expected {a, b, c}", result.VisitedNodes)
		}
		if set["d"] {
			t.Error("d is unreachable and should not be visited")
		}
		if result.Depth != 2 {
			t.Errorf("Depth = %d, expected 2", result.Depth)
		}
		if result.Truncated {
			t.Error("closure should not be truncated")
		}
	})

	t.Run("roots are included", func(t *testing.T) {
		g := buildFrozenGraph(t, []string{"a"}, nil)

		result, err := g.DependencyClosure(context.Background(), []string{"a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.VisitedNodes) != 1 || result.VisitedNodes[0] != "a" {
			t.Errorf("VisitedNodes = %v, expected [a]", result.VisitedNodes)
		}
		if len(result.Roots) != 1 || result.Roots[0] != "a" {
			t.Errorf("Roots = %v, expected [a]", result.Roots)
		}
	})

	t.Run("multiple roots union", func(t *testing.T) {
		g := buildFrozenGraph(t,
			[]string{"a", "b", "x", "y", "z"},
			[][2]string{{"a", "b"}, {"x", "y"}},
		)

		result, err := g.DependencyClosure(context.Background(), []string{"a", "x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		set := visitedSet(result)
		for _, want := range []string{"a", "b", "x", "y"} {
			if !set[want] {
				t.Errorf("expected %q in closure, got %v", want, result.VisitedNodes)
			}
		}
		if set["z"] {
			t.Error("z is unreachable and should not be visited")
		}
	})

	t.Run("shared dependency visited once", func(t *testing.T) {
		g := buildFrozenGraph(t,
			[]string{"a", "b", "shared"},
			[][2]string{{"a", "shared"}, {"b", "shared"}},
		)

		result, err := g.DependencyClosure(context.Background(), []string{"a", "b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		count := 0
		for _, id := range result.VisitedNodes {
			if id == "shared" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("shared visited %d times, expected 1", count)
		}
	})

	t.Run("missing roots are skipped", func(t *testing.T) {
		g := buildFrozenGraph(t,
			[]string{"a", "b"},
			[][2]string{{"a", "b"}},
		)

		result, err := g.DependencyClosure(context.Background(), []string{"ghost", "a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Roots) != 1 || result.Roots[0] != "a" {
			t.Errorf("Roots = %v, expected [a]", result.Roots)
		}
		set := visitedSet(result)
		if !set["a"] || !set["b"] {
			t.Errorf("closure = %v, expected {a, b}", result.VisitedNodes)
		}
	})

	t.Run("all roots missing yields empty closure", func(t *testing.T) {
		g := buildFrozenGraph(t, []string{"a"}, nil)

		result, err := g.DependencyClosure(context.Background(), []string{"ghost"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.VisitedNodes) != 0 {
			t.Errorf("VisitedNodes = %v, expected empty", result.VisitedNodes)
		}
		if result.Truncated {
			t.Error("empty closure should not be truncated")
		}
	})

	t.Run("duplicate roots collapse", func(t *testing.T) {
		g := buildFrozenGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})

		result, err := g.DependencyClosure(context.Background(), []string{"a", "a", "a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Roots) != 1 {
			t.Errorf("Roots = %v, expected one entry", result.Roots)
		}
		if len(result.VisitedNodes) != 2 {
			t.Errorf("VisitedNodes = %v, expected two entries", result.VisitedNodes)
		}
	})
}

func TestGraph_DependencyClosure_CycleSafe(t *testing.T) {
	t.Run("simple cycle", func(t *testing.T) {
		g := buildFrozenGraph(t,
			[]string{"a", "b", "c"},
			[][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}},
		)

		result, err := g.DependencyClosure(context.Background(), []string{"a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.VisitedNodes) != 3 {
			t.Errorf("VisitedNodes = %v, expected 3 entries", result.VisitedNodes)
		}
		if result.Truncated {
			t.Error("cycle traversal should terminate, not truncate")
		}
	})

	t.Run("mutual imports", func(t *testing.T) {
		g := buildFrozenGraph(t,
			[]string{"a", "b"},
			[][2]string{{"a", "b"}, {"b", "a"}},
		)

		result, err := g.DependencyClosure(context.Background(), []string{"a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.VisitedNodes) != 2 {
			t.Errorf("VisitedNodes = %v, expected 2 entries", result.VisitedNodes)
		}
	})
}

func TestGraph_DependencyClosure_Limit(t *testing.T) {
	g := buildFrozenGraph(t,
		[]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}},
	)

	result, err := g.DependencyClosure(context.Background(), []string{"a"}, WithLimit(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.VisitedNodes) != 2 {
		t.Errorf("VisitedNodes = %v, expected 2 entries", result.VisitedNodes)
	}
	if !result.Truncated {
		t.Error("expected Truncated when limit reached")
	}
}

func TestGraph_DependencyClosure_MaxDepth(t *testing.T) {
	g := buildFrozenGraph(t,
		[]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}},
	)

	result, err := g.DependencyClosure(context.Background(), []string{"a"}, WithMaxDepth(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	set := visitedSet(result)
	if !set["a"] || !set["b"] {
		t.Errorf("closure = %v, expected a and b", result.VisitedNodes)
	}
	if set["c"] {
		t.Error("c is beyond max depth and should not be visited")
	}
}

func TestGraph_DependencyClosure_ContextCancelled(t *testing.T) {
	// A chain long enough to hit the periodic context check.
	n := 250
	modules := make([]string, n)
	for i := range modules {
		modules[i] = fmt.Sprintf("m%03d", i)
	}
	edges := make([][2]string, 0, n-1)
	for i := 0; i < n-1; i++ {
		edges = append(edges, [2]string{modules[i], modules[i+1]})
	}
	g := buildFrozenGraph(t, modules, edges)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := g.DependencyClosure(ctx, []string{"m000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Truncated {
		t.Error("expected Truncated for cancelled context")
	}
	if len(result.VisitedNodes) >= n {
		t.Errorf("visited %d nodes, expected early stop", len(result.VisitedNodes))
	}
}

func TestGraph_DependencyClosure_Deterministic(t *testing.T) {
	g := buildFrozenGraph(t,
		[]string{"a", "b", "c", "d", "e"},
		[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}, {"d", "e"}},
	)

	first, err := g.DependencyClosure(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for run := 0; run < 5; run++ {
		next, err := g.DependencyClosure(context.Background(), []string{"a"})
		if err != nil {
			t.Fatalf("run %d failed: %v", run, err)
		}
		if len(next.VisitedNodes) != len(first.VisitedNodes) {
			t.Fatalf("run %d visited %d nodes, expected %d",
				run, len(next.VisitedNodes), len(first.VisitedNodes))
		}
		for i := range first.VisitedNodes {
			if next.VisitedNodes[i] != first.VisitedNodes[i] {
				t.Errorf("run %d: VisitedNodes[%d] = %q, expected %q",
					run, i, next.VisitedNodes[i], first.VisitedNodes[i])
			}
		}
	}
}

func TestGraph_Dependents(t *testing.T) {
	t.Run("transitive importers", func(t *testing.T) {
		g := buildFrozenGraph(t,
			[]string{"a", "b", "c", "d"},
			[][2]string{{"a", "b"}, {"b", "c"}, {"d", "a"}},
		)

		result, err := g.Dependents(context.Background(), "c")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		set := visitedSet(result)
		for _, want := range []string{"c", "b", "a", "d"} {
			if !set[want] {
				t.Errorf("expected %q in dependents, got %v", want, result.VisitedNodes)
			}
		}
	})

	t.Run("module not found", func(t *testing.T) {
		g := buildFrozenGraph(t, []string{"a"}, nil)

		_, err := g.Dependents(context.Background(), "ghost")
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("expected ErrNodeNotFound, got %v", err)
		}
	})

	t.Run("cycle safe", func(t *testing.T) {
		g := buildFrozenGraph(t,
			[]string{"a", "b"},
			[][2]string{{"a", "b"}, {"b", "a"}},
		)

		result, err := g.Dependents(context.Background(), "a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.VisitedNodes) != 2 {
			t.Errorf("VisitedNodes = %v, expected 2 entries", result.VisitedNodes)
		}
	})
}
