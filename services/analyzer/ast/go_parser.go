package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// File size constants for security validation.
const (
	// DefaultMaxFileSize is the maximum file size the parser will accept (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold at which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// GoParserOption configures a GoParser instance.
type GoParserOption func(*GoParser)

// WithMaxFileSize sets the maximum file size the parser will accept.
//
// Parameters:
//   - bytes: Maximum file size in bytes. Must be positive.
//
// Example:
//
//	parser := NewGoParser(WithMaxFileSize(5 * 1024 * 1024)) // 5MB limit
func WithMaxFileSize(bytes int64) GoParserOption {
	return func(p *GoParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// GoParser implements the Parser interface for Go source code.
//
// Description:
//
//	GoParser uses tree-sitter to parse Go source files and extract their
//	import declarations. It supports concurrent use from multiple goroutines -
//	each Parse call creates its own tree-sitter parser instance internally.
//
// Thread Safety:
//
//	GoParser instances are safe for concurrent use. Multiple goroutines
//	may call Parse simultaneously on the same GoParser instance.
//
// Example:
//
//	parser := NewGoParser()
//	result, err := parser.Parse(ctx, []byte("package main\n\nimport \"fmt\""), "main.go")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, imp := range result.Imports {
//	    fmt.Println(imp.Path)
//	}
type GoParser struct {
	maxFileSize int64
}

// NewGoParser creates a new GoParser with the given options.
//
// Description:
//
//	Creates a GoParser configured with sensible defaults. Options can be
//	provided to customize behavior such as maximum file size.
//
// Inputs:
//   - opts: Optional configuration functions (WithMaxFileSize)
//
// Outputs:
//   - *GoParser: Configured parser instance, never nil
//
// Thread Safety:
//
//	The returned GoParser is safe for concurrent use.
func NewGoParser(opts ...GoParserOption) *GoParser {
	p := &GoParser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse extracts import declarations from Go source code.
//
// Description:
//
//	Parse uses tree-sitter to parse the provided Go source code and collect
//	every import declaration into a ParseResult. The parser is error-tolerant:
//	syntactically invalid code still yields the imports tree-sitter could
//	recognize, with HasSyntaxErrors set on the result.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//     Note: Tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw Go source code bytes. Must be valid UTF-8.
//   - filePath: Path to the file, relative to the scan root, forward slashes.
//     Used for locations and error reporting only.
//
// Outputs:
//   - *ParseResult: Extracted imports and metadata. Never nil on success.
//   - error: Non-nil for complete failures:
//   - ErrFileTooLarge: Content exceeds maxFileSize
//   - ErrInvalidContent: Content is not valid UTF-8
//   - ErrParseFailed: Tree-sitter produced no tree at all
//   - Context errors: Context was canceled or timed out
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *GoParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	// Check context before starting
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	// Validate file size
	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	// Log warning for large files
	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	// Validate UTF-8
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	// Compute hash before parsing (captures input)
	hash := sha256.Sum256(content)
	hashStr := hex.EncodeToString(hash[:])

	// Create tree-sitter parser (new instance per call for thread safety)
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	// Parse the content
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	// Check context after parsing
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	result := &ParseResult{
		FilePath: filePath,
		Language: "go",
		Hash:     hashStr,
		Imports:  make([]Import, 0),
	}

	rootNode := tree.RootNode()
	if rootNode == nil {
		return nil, fmt.Errorf("%w: tree-sitter returned nil root node", ErrParseFailed)
	}

	if rootNode.HasError() {
		result.HasSyntaxErrors = true
	}

	p.extractImports(rootNode, content, filePath, result)

	// Check context one final time
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after extraction: %w", err)
	}

	return result, nil
}

// Language returns the canonical language name for this parser.
//
// Returns:
//   - "go" for Go source files
func (p *GoParser) Language() string {
	return "go"
}

// Extensions returns the file extensions this parser handles.
//
// Returns:
//   - []string{".go"} for Go source files
func (p *GoParser) Extensions() []string {
	return []string{".go"}
}

// extractImports extracts import declarations from the AST. Go only permits
// imports before the first declaration, so scanning the root's direct
// children is sufficient.
func (p *GoParser) extractImports(root *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == nodeImportDeclaration {
			p.processImportDecl(child, content, filePath, result)
		}
	}
}

// processImportDecl processes a single import declaration (which may contain multiple imports).
func (p *GoParser) processImportDecl(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)

		switch child.Type() {
		case nodeImportSpec:
			p.processImportSpec(child, content, filePath, result)
		case nodeImportSpecList:
			// Grouped imports: import ( ... )
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() == nodeImportSpec {
					p.processImportSpec(spec, content, filePath, result)
				}
			}
		}
	}
}

// processImportSpec extracts a single import specification.
func (p *GoParser) processImportSpec(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	var alias string
	var path string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case nodePackageIdentifier, nodeBlankIdentifier, nodeDot:
			alias = string(content[child.StartByte():child.EndByte()])
		case nodeInterpretedStringLiteral:
			// Remove quotes from path
			raw := string(content[child.StartByte():child.EndByte()])
			path = strings.Trim(raw, "\"")
		}
	}

	if path == "" {
		return
	}

	result.Imports = append(result.Imports, Import{
		Path:  path,
		Alias: alias,
		Location: Location{
			FilePath:  filePath,
			StartLine: int(node.StartPoint().Row + 1),
			EndLine:   int(node.EndPoint().Row + 1),
			StartCol:  int(node.StartPoint().Column),
			EndCol:    int(node.EndPoint().Column),
		},
	})
}

// Compile-time interface compliance check.
var _ Parser = (*GoParser)(nil)
