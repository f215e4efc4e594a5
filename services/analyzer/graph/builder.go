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
	"path"
	"sort"
	"strings"
	"time"

	"github.com/layerai/impactgate/services/analyzer/ast"
)

// BuilderOptions configures the graph builder.
type BuilderOptions struct {
	// Root is the scan root the parse results are relative to. Recorded on
	// the graph; not used for resolution.
	Root string

	// GoModulePath is the module path from the tree's go.mod, used to
	// resolve Go import paths to directories inside the tree. Empty means
	// every Go import is external.
	GoModulePath string

	// MaxNodes caps the graph's node count.
	// Default: DefaultMaxNodes
	MaxNodes int

	// MaxEdges caps the graph's edge count.
	// Default: DefaultMaxEdges
	MaxEdges int
}

// DefaultBuilderOptions returns sensible defaults for the builder.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// BuilderOption is a functional option for configuring the Builder.
type BuilderOption func(*BuilderOptions)

// WithRoot sets the scan root recorded on built graphs.
func WithRoot(root string) BuilderOption {
	return func(o *BuilderOptions) {
		o.Root = root
	}
}

// WithGoModulePath sets the go.mod module path used to resolve Go imports.
func WithGoModulePath(modulePath string) BuilderOption {
	return func(o *BuilderOptions) {
		o.GoModulePath = modulePath
	}
}

// WithBuilderMaxNodes caps the node count of built graphs.
func WithBuilderMaxNodes(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxNodes = n
	}
}

// WithBuilderMaxEdges caps the edge count of built graphs.
func WithBuilderMaxEdges(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxEdges = n
	}
}

// Builder constructs dependency graphs from parse results.
//
// Description:
//
//	Builder folds the import statements of every parsed file into a frozen
//	Graph. Nodes are modules (one per canonical module path); a directed
//	edge from A to B means module A imports module B. Imports that do not
//	resolve to a module inside the tree (standard library, third-party,
//	paths outside the root) are counted and excluded, never guessed at.
//
//	The build is deterministic: results are processed in file path order
//	regardless of input order, so the same tree always produces the same
//	graph.
//
// Thread Safety:
//
//	Builder is stateless and safe for concurrent use. Each Build call
//	creates its own graph and working state.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxNodes <= 0 {
		options.MaxNodes = DefaultMaxNodes
	}
	if options.MaxEdges <= 0 {
		options.MaxEdges = DefaultMaxEdges
	}
	return &Builder{options: options}
}

// buildState carries the working set of one Build call.
type buildState struct {
	graph *Graph

	// imports accumulates import statements per module path. Sibling files
	// that map to one module path merge here.
	imports map[string][]ast.Import

	// modulesByDir indexes module paths by directory for Go package
	// resolution, in file path order.
	modulesByDir map[string][]string

	fileErrors []FileError
	stats      BuildStats
	incomplete bool
}

// Build constructs a frozen dependency graph from parse results.
//
// Description:
//
//	Runs two phases. Phase one registers every parse result as a module
//	node. Phase two resolves each module's imports against the registered
//	nodes and adds edges. The returned graph is frozen and ready to query.
//
//	Failures are file-scoped where possible: a bad parse result is recorded
//	in FileErrors and the build continues. Cancellation and graph capacity
//	limits stop the build; the partial graph is still frozen and returned
//	with Incomplete set, alongside the error.
//
// Inputs:
//
//	ctx - Context for cancellation, checked per file.
//	results - Parse results for the tree. Order does not matter.
//
// Outputs:
//
//	*BuildResult - Graph, per-file errors, and stats. Never nil.
//	error - Non-nil only when the build stopped early.
//
// Errors:
//
//	ErrBuildCancelled - Context was cancelled mid-build
//	ErrMaxNodesExceeded - Node capacity reached
//	ErrMaxEdgesExceeded - Edge capacity reached
func (b *Builder) Build(ctx context.Context, results []*ast.ParseResult) (*BuildResult, error) {
	start := time.Now()

	state := &buildState{
		graph: NewGraph(b.options.Root,
			WithMaxNodes(b.options.MaxNodes),
			WithMaxEdges(b.options.MaxEdges),
		),
		imports:      make(map[string][]ast.Import),
		modulesByDir: make(map[string][]string),
	}

	// Input order must not leak into the graph.
	sorted := make([]*ast.ParseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i] == nil || sorted[j] == nil {
			return sorted[j] == nil && sorted[i] != nil
		}
		return sorted[i].FilePath < sorted[j].FilePath
	})

	err := b.collectModules(ctx, state, sorted)
	if err == nil {
		err = b.connectImports(ctx, state)
	}

	state.graph.Freeze()

	state.stats.NodesCreated = state.graph.NodeCount()
	state.stats.EdgesCreated = state.graph.EdgeCount()
	elapsed := time.Since(start)
	state.stats.DurationMilli = elapsed.Milliseconds()
	state.stats.DurationMicro = elapsed.Microseconds()

	return &BuildResult{
		Graph:      state.graph,
		FileErrors: state.fileErrors,
		Stats:      state.stats,
		Incomplete: state.incomplete,
	}, err
}

// collectModules registers one node per canonical module path.
func (b *Builder) collectModules(ctx context.Context, state *buildState, results []*ast.ParseResult) error {
	for _, result := range results {
		select {
		case <-ctx.Done():
			state.incomplete = true
			return fmt.Errorf("%w: %w", ErrBuildCancelled, ctx.Err())
		default:
		}

		if result == nil {
			state.fileErrors = append(state.fileErrors, FileError{
				FilePath: "",
				Err:      errors.New("nil parse result"),
			})
			state.stats.FilesFailed++
			continue
		}

		modulePath := ModulePath(result.FilePath)
		if modulePath == "" || modulePath == "." {
			state.fileErrors = append(state.fileErrors, FileError{
				FilePath: result.FilePath,
				Err:      fmt.Errorf("%w: no module path for %q", ErrInvalidNode, result.FilePath),
			})
			state.stats.FilesFailed++
			continue
		}

		if state.graph.HasNode(modulePath) {
			// Sibling files mapping to one module (model.py next to
			// model.pyi) merge their imports. The first file in path
			// order keeps the node.
			state.imports[modulePath] = append(state.imports[modulePath], result.Imports...)
			state.stats.FilesProcessed++
			continue
		}

		module := &Module{
			Path:     modulePath,
			FilePath: result.FilePath,
			Language: result.Language,
		}
		if _, err := state.graph.AddNode(module); err != nil {
			if errors.Is(err, ErrMaxNodesExceeded) {
				state.incomplete = true
				return err
			}
			state.fileErrors = append(state.fileErrors, FileError{
				FilePath: result.FilePath,
				Err:      err,
			})
			state.stats.FilesFailed++
			continue
		}

		state.imports[modulePath] = result.Imports
		state.modulesByDir[module.Dir()] = append(state.modulesByDir[module.Dir()], modulePath)
		state.stats.FilesProcessed++
	}

	return nil
}

// connectImports resolves every module's imports and adds the edges.
func (b *Builder) connectImports(ctx context.Context, state *buildState) error {
	for _, modulePath := range state.graph.Paths() {
		select {
		case <-ctx.Done():
			state.incomplete = true
			return fmt.Errorf("%w: %w", ErrBuildCancelled, ctx.Err())
		default:
		}

		node, ok := state.graph.GetNode(modulePath)
		if !ok {
			continue
		}

		for _, imp := range state.imports[modulePath] {
			targets := b.resolveImport(state, node, imp)
			if len(targets) == 0 {
				state.stats.ExternalImports++
				continue
			}

			for _, target := range targets {
				if err := state.graph.AddEdge(modulePath, target, imp.Location); err != nil {
					if errors.Is(err, ErrMaxEdgesExceeded) {
						state.incomplete = true
						return err
					}
					state.fileErrors = append(state.fileErrors, FileError{
						FilePath: node.Module.FilePath,
						Err:      err,
					})
				}
			}
		}
	}

	return nil
}

// resolveImport maps one import statement onto the module paths it loads
// inside the tree. An empty result means the import is external.
func (b *Builder) resolveImport(state *buildState, node *Node, imp ast.Import) []string {
	switch node.Module.Language {
	case "python":
		return b.resolvePythonImport(state, node.Module.Path, imp)
	case "go":
		return b.resolveGoImport(state, imp)
	default:
		return nil
	}
}

// resolvePythonImport resolves one Python import statement.
//
// Importing a dotted path executes every package __init__ along the chain,
// so "import layer.datasets.dataset" depends on layer/__init__,
// layer/datasets/__init__, and layer/datasets/dataset. From-import names may
// themselves be submodules ("from layer import client" loads layer/client),
// so each name is probed as a module too. Relative imports are anchored at
// the importing module's package; one dot is the package itself, each extra
// dot climbs one parent, and climbing past the scan root makes the import
// external.
func (b *Builder) resolvePythonImport(state *buildState, modulePath string, imp ast.Import) []string {
	base := ""
	remainder := imp.Path

	if imp.IsRelative {
		dots := 0
		for dots < len(imp.Path) && imp.Path[dots] == '.' {
			dots++
		}
		remainder = imp.Path[dots:]

		base = path.Dir(modulePath)
		for i := 1; i < dots; i++ {
			if base == "." {
				return nil
			}
			base = path.Dir(base)
		}
		if base == "." {
			base = ""
		}
	}

	var targets []string
	seen := make(map[string]struct{})
	add := func(candidate string) {
		resolved, ok := b.resolveModule(state, candidate)
		if !ok {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		targets = append(targets, resolved)
	}

	// Package chain: every prefix of the dotted path is loaded.
	prefix := base
	if remainder != "" {
		for _, part := range strings.Split(remainder, ".") {
			prefix = path.Join(prefix, part)
			add(prefix)
		}
	} else {
		// Bare "from . import x": the package itself.
		add(prefix)
	}

	if !imp.IsWildcard {
		for _, name := range imp.Names {
			add(path.Join(prefix, name))
		}
	}

	return targets
}

// resolveModule maps a slash-separated candidate path to a module in the
// graph: the file module itself, or the package's __init__ marker.
func (b *Builder) resolveModule(state *buildState, candidate string) (string, bool) {
	if candidate == "" || candidate == "." {
		if state.graph.HasNode("__init__") {
			return "__init__", true
		}
		return "", false
	}
	if state.graph.HasNode(candidate) {
		return candidate, true
	}
	marker := candidate + "/__init__"
	if state.graph.HasNode(marker) {
		return marker, true
	}
	return "", false
}

// resolveGoImport resolves one Go import path.
//
// An import of a package pulls in every file of that package, so the edge
// fans out to each module in the imported directory. Import paths outside
// the tree's go.mod module path are external.
func (b *Builder) resolveGoImport(state *buildState, imp ast.Import) []string {
	modPath := b.options.GoModulePath
	if modPath == "" || imp.Path == "" {
		return nil
	}

	var dir string
	switch {
	case imp.Path == modPath:
		dir = "."
	case strings.HasPrefix(imp.Path, modPath+"/"):
		dir = strings.TrimPrefix(imp.Path, modPath+"/")
	default:
		return nil
	}

	return state.modulesByDir[dir]
}
