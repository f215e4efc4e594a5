package ast

// Go Tree-sitter Node Types
//
// This file documents the tree-sitter node types used by GoParser for import
// extraction. The parser uses direct node traversal rather than tree-sitter's
// query language for more precise control over what is recorded.
//
// Reference: https://github.com/tree-sitter/tree-sitter-go/blob/master/src/grammar.json

// Node type constants for Go AST traversal.
//
// These constants match the node types defined in tree-sitter-go. Go only
// permits imports at the top of a file, so the walk stays at source_file
// depth.
const (
	// Import-related nodes
	nodeImportDeclaration = "import_declaration"
	nodeImportSpec        = "import_spec"
	nodeImportSpecList    = "import_spec_list"

	// Identifier nodes
	nodePackageIdentifier = "package_identifier"
	nodeBlankIdentifier   = "blank_identifier"
	nodeDot               = "dot"

	// Literal nodes
	nodeInterpretedStringLiteral = "interpreted_string_literal"
)

// QueryImports is the equivalent tree-sitter query pattern, kept for
// reference. The implementation uses direct traversal because it handles
// single-spec declarations (import "fmt") and grouped declarations with the
// same code path.
const QueryImports = `
(import_declaration
  (import_spec_list
    (import_spec
      name: (package_identifier)? @alias
      path: (interpreted_string_literal) @path)))
`
