// Package ast provides import-statement extraction from source files.
//
// The analyzer only needs the import edges of each file, so parsers here are
// deliberately narrow: they parse a file with tree-sitter, collect its import
// statements with enough structure to resolve them against the scanned tree
// (absolute vs relative, aliased, wildcard), and return everything else
// untouched. Parsers are error-tolerant; a file with syntax errors still
// yields the imports tree-sitter could recognize, and the degraded state is
// flagged so callers can log a diagnostic.
//
// Design principles:
//   - Context-aware: parsing honors cancellation
//   - Language-agnostic result shape: one Import type for every language
//   - Error-tolerant: partial results over hard failures
package ast

import (
	"fmt"
)

// Location identifies where an import statement appears in a source file.
type Location struct {
	// FilePath is the path to the source file, relative to the scan root.
	FilePath string `json:"file_path"`

	// StartLine is the 1-indexed line where the statement starts.
	StartLine int `json:"start_line"`

	// EndLine is the 1-indexed line where the statement ends.
	EndLine int `json:"end_line"`

	// StartCol is the 0-indexed column on StartLine.
	StartCol int `json:"start_col"`

	// EndCol is the 0-indexed column on EndLine.
	EndCol int `json:"end_col"`
}

// String returns "file_path:start_line:start_col".
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FilePath, l.StartLine, l.StartCol)
}

// Import is one import statement with the structure needed for resolution.
//
// For Python, Path preserves the source spelling: "layer.config" for an
// absolute import, ".client" or "..projects.asset" for relative imports
// (leading dots included, IsRelative set). For Go, Path is the unquoted
// import path ("github.com/layerai/impactgate/services/analyzer/graph").
type Import struct {
	// Path is the imported module path as written, see type comment.
	Path string `json:"path"`

	// Alias is the local binding, if any ("import numpy as np" -> "np").
	Alias string `json:"alias,omitempty"`

	// Names lists the imported members of a from-import
	// ("from layer.client import Dataset, Model" -> ["Dataset", "Model"]).
	Names []string `json:"names,omitempty"`

	// IsWildcard marks "from x import *".
	IsWildcard bool `json:"is_wildcard,omitempty"`

	// IsRelative marks Python relative imports (Path starts with dots).
	IsRelative bool `json:"is_relative,omitempty"`

	// Location is where the statement appears.
	Location Location `json:"location"`
}

// ParseResult holds everything extracted from one file.
type ParseResult struct {
	// FilePath is the parsed file's path, relative to the scan root.
	FilePath string `json:"file_path"`

	// Language is the parser's language name ("python", "go").
	Language string `json:"language"`

	// Hash is the hex SHA-256 of the file content, recorded so callers can
	// correlate results with tree snapshots.
	Hash string `json:"hash"`

	// Imports lists every import statement found, in source order.
	Imports []Import `json:"imports"`

	// HasSyntaxErrors is true when tree-sitter reported errors in the tree.
	// Imports is still populated with whatever could be recognized.
	HasSyntaxErrors bool `json:"has_syntax_errors,omitempty"`
}
