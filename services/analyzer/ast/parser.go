// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"sync"
)

// Parser defines the contract for language-specific import extraction.
//
// Description:
//
//	Parser implementations read raw source bytes and return the file's
//	import statements in the common ParseResult format. Each implementation
//	handles one language but the output shape is identical, so the graph
//	builder never branches on language.
//
// Inputs:
//
//	ctx      - Context for cancellation. Implementations check it before
//	           and after the tree-sitter parse (the parse itself cannot be
//	           interrupted mid-flight).
//	content  - Raw source bytes. Must be valid UTF-8.
//	filePath - Path of the file relative to the scan root, forward slashes.
//	           Used for diagnostics and result correlation only.
//
// Outputs:
//
//	*ParseResult - Imports plus metadata. Never nil on success; may have
//	               HasSyntaxErrors set with partial imports.
//	error        - Non-nil only for complete failures (size limit, bad
//	               UTF-8, canceled context).
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use; each Parse call
//	creates its own tree-sitter parser instance.
type Parser interface {
	// Parse extracts import statements from source code.
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)

	// Language returns the canonical lowercase language name ("python", "go").
	Language() string

	// Extensions returns the file extensions this parser handles, with the
	// leading dot, lowercase (Python: [".py", ".pyi"]; Go: [".go"]).
	Extensions() []string
}

// ParserRegistry manages parser instances by language and file extension.
//
// Thread Safety:
//
//	Fully thread-safe. Registration takes the write lock, lookups the
//	read lock.
type ParserRegistry struct {
	mu sync.RWMutex

	// byLanguage maps language names to parser instances.
	byLanguage map[string]Parser

	// byExtension maps file extensions to parser instances.
	byExtension map[string]Parser
}

// NewParserRegistry creates a new empty ParserRegistry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		byLanguage:  make(map[string]Parser),
		byExtension: make(map[string]Parser),
	}
}

// DefaultRegistry returns a registry with every built-in parser registered.
// This is what the scanner uses unless the configuration narrows languages.
func DefaultRegistry() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewPythonParser())
	r.Register(NewGoParser())
	return r
}

// Register adds a parser under its Language() name and all its Extensions().
// Existing registrations for the same keys are overwritten. A nil parser is
// ignored.
func (r *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[parser.Language()] = parser

	for _, ext := range parser.Extensions() {
		r.byExtension[ext] = parser
	}
}

// GetByLanguage returns the parser for a language name, case-sensitive.
func (r *ParserRegistry) GetByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byLanguage[language]
	return parser, ok
}

// GetByExtension returns the parser for a file extension including the dot
// (".py"), case-sensitive.
func (r *ParserRegistry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byExtension[ext]
	return parser, ok
}

// Languages returns all registered language names.
func (r *ParserRegistry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	languages := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		languages = append(languages, lang)
	}
	return languages
}

// Extensions returns all registered file extensions.
func (r *ParserRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	extensions := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		extensions = append(extensions, ext)
	}
	return extensions
}
