// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

// Python Tree-sitter Node Types
//
// This file documents the tree-sitter node types used by PythonParser for import
// extraction. The parser uses direct node traversal rather than tree-sitter's query
// language for more precise control over which statements are recorded.
//
// Reference: https://github.com/tree-sitter/tree-sitter-python/blob/master/src/grammar.json

// Node type constants for Python AST traversal.
//
// These constants match the node types defined in tree-sitter-python. Only the
// constructs that can introduce a module dependency are listed.
const (
	// Top-level nodes
	pyNodeModule = "module"

	// Import-related nodes
	pyNodeImportStatement     = "import_statement"
	pyNodeImportFromStatement = "import_from_statement"
	pyNodeDottedName          = "dotted_name"
	pyNodeAliasedImport       = "aliased_import"
	pyNodeRelativeImport      = "relative_import"
	pyNodeImportPrefix        = "import_prefix"
	pyNodeWildcardImport      = "wildcard_import"

	// Identifier nodes
	pyNodeIdentifier = "identifier"
)

// Python AST Structure Reference (imports)
//
// module
// ├── import_statement
// │   ├── dotted_name
// │   └── aliased_import
// │       ├── dotted_name
// │       └── identifier (alias)
// └── import_from_statement
//     ├── relative_import
//     │   ├── import_prefix (dots)
//     │   └── dotted_name (optional)
//     ├── dotted_name (module path)
//     ├── dotted_name+ (imported names)
//     ├── aliased_import
//     └── wildcard_import
//
// Import statements can appear at any block depth (inside functions, classes,
// and conditional branches), so the walk must recurse instead of scanning only
// the module's direct children.
