// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/layerai/impactgate/services/analyzer/ast"
)

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 10_000_000
)

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is accepting AddNode/AddEdge calls.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// Module is the unit of source the graph is built over: one source file,
// identified by its canonical path.
type Module struct {
	// Path is the canonical module path: the source file's path relative to
	// the scan root, slash-separated, without extension. "layer/model.py"
	// becomes "layer/model"; package markers keep their name
	// ("layer/__init__").
	Path string `json:"path"`

	// FilePath is the source file's path relative to the scan root,
	// extension included.
	FilePath string `json:"file_path"`

	// Language is the parser language that produced this module ("python",
	// "go").
	Language string `json:"language"`
}

// Dir returns the module's directory relative to the scan root ("." for
// modules at the root).
func (m *Module) Dir() string {
	return path.Dir(m.Path)
}

// ModulePath derives the canonical module path from a source file path.
//
// The input must be relative to the scan root and slash-separated; the
// extension is stripped ("layer/model.py" → "layer/model",
// "cmd/run/main.go" → "cmd/run/main").
func ModulePath(filePath string) string {
	ext := path.Ext(filePath)
	return strings.TrimSuffix(filePath, ext)
}

// Edge represents a directed import relationship between two modules:
// FromID imports ToID.
//
// Edges are set-valued: at most one edge exists per (from, to) pair, no
// matter how many import statements express the relationship. Location
// records the first statement seen.
type Edge struct {
	// FromID is the importing module's path.
	FromID string `json:"from"`

	// ToID is the imported module's path.
	ToID string `json:"to"`

	// Location is where the first import statement appears.
	Location ast.Location `json:"location"`
}

// Node represents a module in the dependency graph with its relationships.
//
// The Module pointer is NOT owned by the Node. The referenced Module
// MUST NOT be mutated after the Node is added to a Graph.
type Node struct {
	// ID is the unique identifier, same as Module.Path.
	ID string

	// Module is the underlying module.
	Module *Module

	// Outgoing contains edges where this module is the importer.
	Outgoing []*Edge

	// Incoming contains edges where this module is the imported one.
	Incoming []*Edge
}

// GraphOptions configures Graph behavior and limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	// Default: 1,000,000
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	// Default: 10,000,000
	MaxEdges int
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}

// edgeKey identifies an edge by its endpoints for set-dedup.
type edgeKey struct {
	from string
	to   string
}

// Graph represents the module dependency graph for one tree snapshot.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use during building. It is designed
//	for single-writer access during build, then read-only after Freeze().
//	After Freeze() is called, the graph can be safely read from multiple
//	goroutines, but no further modifications are allowed.
//
// Lifecycle:
//
//  1. Create with NewGraph(root)
//  2. Build with AddNode() and AddEdge() calls
//  3. Call Freeze() to finalize
//  4. Query with GetNode(), DependencyClosure(), etc.
type Graph struct {
	// ID uniquely identifies this graph instance (serve-mode cache key).
	ID string

	// Root is the scan root this graph was built from.
	Root string

	// nodes maps module path to Node. Unexported to prevent direct access.
	nodes map[string]*Node

	// edges contains all edges in the graph.
	edges []*Edge

	// edgeKeys tracks existing (from, to) pairs so repeated import
	// statements collapse into one edge.
	edgeKeys map[edgeKey]struct{}

	// nodesByFile maps source file path to its node.
	// Thread safety: Writes during build only, reads after Freeze().
	nodesByFile map[string]*Node

	// nodesByLanguage counts nodes per language for Stats.
	nodesByLanguage map[string]int

	// sortedPaths holds all module paths in lexicographic order. Built by
	// Freeze(); empty while building.
	sortedPaths []string

	// state is the current lifecycle state.
	state GraphState

	// options contains configuration.
	options GraphOptions

	// BuiltAtMilli is the Unix timestamp in milliseconds when Freeze() was
	// called. Zero if the graph has not been frozen.
	BuiltAtMilli int64
}

// NewGraph creates a new empty graph for the given scan root.
//
// Description:
//
//	Creates a graph in the Building state, ready to accept AddNode and
//	AddEdge calls. The graph must be frozen with Freeze() before querying.
//
// Inputs:
//
//	root - Path to the scan root directory.
//	opts - Optional configuration options.
//
// Example:
//
//	// Default options
//	g := NewGraph("/path/to/repo")
//
//	// Custom limits
//	g := NewGraph("/path/to/repo",
//	    WithMaxNodes(100_000),
//	    WithMaxEdges(1_000_000),
//	)
func NewGraph(root string, opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		ID:              uuid.NewString(),
		Root:            root,
		nodes:           make(map[string]*Node),
		edges:           make([]*Edge, 0),
		edgeKeys:        make(map[edgeKey]struct{}),
		nodesByFile:     make(map[string]*Node),
		nodesByLanguage: make(map[string]int),
		state:           GraphStateBuilding,
		options:         options,
	}
}

// State returns the current lifecycle state of the graph.
func (g *Graph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *Graph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// Freeze transitions the graph to read-only mode.
//
// Description:
//
//	After calling Freeze(), AddNode and AddEdge will return ErrGraphFrozen.
//	This operation is irreversible. The BuiltAtMilli timestamp is set and
//	the sorted path index is built so iteration order is deterministic.
//
// Thread Safety:
//
//	After Freeze() returns, the graph can be safely read from multiple
//	goroutines concurrently.
func (g *Graph) Freeze() {
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	g.sortedPaths = paths

	g.state = GraphStateReadOnly
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AddNode adds a module as a node in the graph.
//
// Description:
//
//	Creates a new node from the given module and adds it to the graph.
//	The module's Path becomes the node's ID.
//
// Inputs:
//
//	module - The module to add. Must not be nil and must have a Path.
//
// Outputs:
//
//	*Node - The created node. Can be used to inspect Outgoing/Incoming edges.
//	error - Non-nil if the graph is frozen, at capacity, or module is invalid.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrInvalidNode - Module is nil or has an empty path
//	ErrDuplicateNode - Node with the same path already exists
//	ErrMaxNodesExceeded - Graph is at node capacity
//
// Ownership:
//
//	The graph stores a pointer to the module but does NOT own it.
//	The module MUST NOT be mutated after this call.
func (g *Graph) AddNode(module *Module) (*Node, error) {
	if g.state == GraphStateReadOnly {
		return nil, ErrGraphFrozen
	}

	if module == nil {
		return nil, fmt.Errorf("%w: module is nil", ErrInvalidNode)
	}
	if module.Path == "" {
		return nil, fmt.Errorf("%w: empty module path", ErrInvalidNode)
	}

	if len(g.nodes) >= g.options.MaxNodes {
		return nil, ErrMaxNodesExceeded
	}

	if _, exists := g.nodes[module.Path]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, module.Path)
	}

	node := &Node{
		ID:       module.Path,
		Module:   module,
		Outgoing: make([]*Edge, 0),
		Incoming: make([]*Edge, 0),
	}

	g.nodes[module.Path] = node

	if module.FilePath != "" {
		g.nodesByFile[module.FilePath] = node
	}
	g.nodesByLanguage[module.Language]++

	return node, nil
}

// GetNode retrieves a node by its module path.
//
// Outputs:
//
//	*Node - The node if found, nil otherwise.
//	bool - True if the node was found.
func (g *Graph) GetNode(path string) (*Node, bool) {
	node, exists := g.nodes[path]
	return node, exists
}

// HasNode reports whether a module path exists in the graph.
func (g *Graph) HasNode(path string) bool {
	_, exists := g.nodes[path]
	return exists
}

// GetNodeByFile retrieves a node by its source file path.
func (g *Graph) GetNodeByFile(filePath string) (*Node, bool) {
	node, exists := g.nodesByFile[filePath]
	return node, exists
}

// AddEdge creates a directed import edge between two modules.
//
// Description:
//
//	Creates an edge from the importing module to the imported module. Both
//	nodes must already exist in the graph. Repeated (from, to) pairs are
//	collapsed: the second and later calls are no-ops returning nil, keeping
//	set semantics for the import relation. Self-imports are ignored.
//
// Inputs:
//
//	fromID - Path of the importing module.
//	toID - Path of the imported module.
//	loc - Where the import statement appears.
//
// Outputs:
//
//	error - Non-nil if the graph is frozen, at capacity, or a node is missing.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrNodeNotFound - Source or target node doesn't exist
//	ErrMaxEdgesExceeded - Graph is at edge capacity
func (g *Graph) AddEdge(fromID, toID string, loc ast.Location) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}

	if fromID == toID {
		return nil
	}

	if _, exists := g.edgeKeys[edgeKey{fromID, toID}]; exists {
		return nil
	}

	if len(g.edges) >= g.options.MaxEdges {
		return ErrMaxEdgesExceeded
	}

	fromNode, fromOK := g.nodes[fromID]
	if !fromOK {
		return fmt.Errorf("%w: source %s", ErrNodeNotFound, fromID)
	}

	toNode, toOK := g.nodes[toID]
	if !toOK {
		return fmt.Errorf("%w: target %s", ErrNodeNotFound, toID)
	}

	edge := &Edge{
		FromID:   fromID,
		ToID:     toID,
		Location: loc,
	}

	g.edges = append(g.edges, edge)
	g.edgeKeys[edgeKey{fromID, toID}] = struct{}{}
	fromNode.Outgoing = append(fromNode.Outgoing, edge)
	toNode.Incoming = append(toNode.Incoming, edge)

	return nil
}

// Nodes returns an iterator function over all nodes in the graph.
//
// Description:
//
//	Returns a function that can be used to iterate over all nodes.
//	This allows iteration without exposing the internal map. Order is
//	unspecified; use Paths() for deterministic order on frozen graphs.
//
// Example:
//
//	for id, node := range g.Nodes() {
//	    fmt.Printf("Node: %s\n", id)
//	}
func (g *Graph) Nodes() func(yield func(string, *Node) bool) {
	return func(yield func(string, *Node) bool) {
		for id, node := range g.nodes {
			if !yield(id, node) {
				return
			}
		}
	}
}

// Edges returns a slice of all edges in the graph.
//
// Description:
//
//	Returns the internal edge slice. Callers should NOT modify
//	the returned slice.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Paths returns all module paths in lexicographic order.
//
// On a frozen graph this is the index built by Freeze(); while building it
// is computed on the fly. Callers should NOT modify the returned slice of a
// frozen graph.
func (g *Graph) Paths() []string {
	if g.state == GraphStateReadOnly {
		return g.sortedPaths
	}
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ModulesUnder returns the nodes of every module at or below the given
// directory, in lexicographic path order.
//
// Description:
//
//	dir is a slash-separated directory relative to the scan root. A module
//	whose path equals dir is included too, so a root naming a single module
//	("layer/model") and a root naming a package directory ("test/e2e")
//	resolve through the same call. "." or "" match every module.
//
// Complexity:
//
//	O(log n + k) on a frozen graph via the sorted path index.
func (g *Graph) ModulesUnder(dir string) []*Node {
	paths := g.Paths()

	if dir == "" || dir == "." {
		result := make([]*Node, 0, len(paths))
		for _, p := range paths {
			result = append(result, g.nodes[p])
		}
		return result
	}

	prefix := dir + "/"
	start := sort.SearchStrings(paths, dir)

	result := make([]*Node, 0)
	for i := start; i < len(paths); i++ {
		p := paths[i]
		if p == dir {
			result = append(result, g.nodes[p])
			continue
		}
		if !strings.HasPrefix(p, prefix) {
			if p > prefix {
				break
			}
			continue
		}
		result = append(result, g.nodes[p])
	}
	return result
}

// GraphStats contains statistics about the graph.
//
// Thread Safety: GraphStats is a value type with no internal state.
// Safe for concurrent use as long as the source Graph is frozen.
type GraphStats struct {
	// ID is the graph's unique identifier.
	ID string `json:"id"`

	// Root is the scan root the graph was built from.
	Root string `json:"root"`

	// NodeCount is the total number of modules.
	NodeCount int `json:"node_count"`

	// EdgeCount is the total number of import edges.
	EdgeCount int `json:"edge_count"`

	// NodesByLanguage maps each language to the count of modules parsed
	// from it.
	NodesByLanguage map[string]int `json:"nodes_by_language"`

	// MaxNodes is the configured maximum node capacity.
	MaxNodes int `json:"max_nodes"`

	// MaxEdges is the configured maximum edge capacity.
	MaxEdges int `json:"max_edges"`

	// State is the current graph state.
	State string `json:"state"`

	// BuiltAtMilli is when Freeze() was called (0 if not frozen).
	BuiltAtMilli int64 `json:"built_at_milli"`
}

// Stats returns statistics about the graph.
//
// Thread Safety:
//
//	Safe for concurrent use on frozen graphs. Not safe during building.
func (g *Graph) Stats() GraphStats {
	byLanguage := make(map[string]int, len(g.nodesByLanguage))
	for lang, count := range g.nodesByLanguage {
		if count > 0 {
			byLanguage[lang] = count
		}
	}

	return GraphStats{
		ID:              g.ID,
		Root:            g.Root,
		NodeCount:       len(g.nodes),
		EdgeCount:       len(g.edges),
		NodesByLanguage: byLanguage,
		MaxNodes:        g.options.MaxNodes,
		MaxEdges:        g.options.MaxEdges,
		State:           g.state.String(),
		BuiltAtMilli:    g.BuiltAtMilli,
	}
}
