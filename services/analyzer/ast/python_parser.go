package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithPythonMaxFileSize sets the maximum file size the parser will accept.
//
// Parameters:
//   - bytes: Maximum file size in bytes. Must be positive.
//
// Example:
//
//	parser := NewPythonParser(WithPythonMaxFileSize(5 * 1024 * 1024)) // 5MB limit
func WithPythonMaxFileSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// PythonParser implements the Parser interface for Python source code.
//
// Description:
//
//	PythonParser uses tree-sitter to parse Python source files and extract
//	their import statements. It supports concurrent use from multiple
//	goroutines - each Parse call creates its own tree-sitter parser instance
//	internally.
//
// Thread Safety:
//
//	PythonParser instances are safe for concurrent use. Multiple goroutines
//	may call Parse simultaneously on the same PythonParser instance.
//
// Example:
//
//	parser := NewPythonParser()
//	result, err := parser.Parse(ctx, []byte("import layer.config"), "main.py")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, imp := range result.Imports {
//	    fmt.Println(imp.Path)
//	}
type PythonParser struct {
	maxFileSize int64
}

// NewPythonParser creates a new PythonParser with the given options.
//
// Description:
//
//	Creates a PythonParser configured with sensible defaults. Options can be
//	provided to customize behavior such as maximum file size.
//
// Inputs:
//   - opts: Optional configuration functions (WithPythonMaxFileSize)
//
// Outputs:
//   - *PythonParser: Configured parser instance, never nil
//
// Thread Safety:
//
//	The returned PythonParser is safe for concurrent use.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse extracts import statements from Python source code.
//
// Description:
//
//	Parse uses tree-sitter to parse the provided Python source code and
//	collect every import statement into a ParseResult. The parser is
//	error-tolerant: syntactically invalid code still yields the imports
//	tree-sitter could recognize, with HasSyntaxErrors set on the result.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//     Note: Tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw Python source code bytes. Must be valid UTF-8.
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
// Example:
//
//	result, err := parser.Parse(ctx, src, "layer/model.py")
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("found %d imports\n", len(result.Imports))
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
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
	parser.SetLanguage(python.GetLanguage())

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
		Language: "python",
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
//   - "python" for Python source files
func (p *PythonParser) Language() string {
	return "python"
}

// Extensions returns the file extensions this parser handles.
//
// Returns:
//   - []string{".py", ".pyi"} for Python source and stub files
func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyi"}
}

// extractImports walks the tree and records every import statement.
//
// Imports inside functions, classes, and conditional branches still create a
// dependency at runtime, so the walk recurses through the whole tree instead
// of scanning only the module's direct children.
func (p *PythonParser) extractImports(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	switch node.Type() {
	case pyNodeImportStatement:
		p.processImportStatement(node, content, filePath, result)
		return
	case pyNodeImportFromStatement:
		p.processImportFromStatement(node, content, filePath, result)
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.extractImports(node.Child(i), content, filePath, result)
	}
}

// processImportStatement handles 'import foo' or 'import foo as bar' style imports.
func (p *PythonParser) processImportStatement(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	// import_statement contains dotted_name or aliased_import children
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case pyNodeDottedName:
			path := string(content[child.StartByte():child.EndByte()])
			p.addImport(node, path, "", nil, false, false, filePath, result)
		case pyNodeAliasedImport:
			var path, alias string
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				switch grandchild.Type() {
				case pyNodeDottedName:
					path = string(content[grandchild.StartByte():grandchild.EndByte()])
				case pyNodeIdentifier:
					alias = string(content[grandchild.StartByte():grandchild.EndByte()])
				}
			}
			if path != "" {
				p.addImport(node, path, alias, nil, false, false, filePath, result)
			}
		}
	}
}

// processImportFromStatement handles 'from x import y' style imports.
func (p *PythonParser) processImportFromStatement(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	var modulePath string
	var names []string
	var isWildcard bool
	var isRelative bool
	var sawImport bool // Track when we've seen the "import" keyword

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "from":
			// Skip the "from" keyword
		case "import":
			// Mark that we've seen import - subsequent dotted_name/identifier are imported names
			sawImport = true
		case pyNodeRelativeImport:
			isRelative = true
			// relative_import contains import_prefix (dots) and optionally dotted_name
			var prefix string
			var name string
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				switch grandchild.Type() {
				case pyNodeImportPrefix:
					prefix = string(content[grandchild.StartByte():grandchild.EndByte()])
				case pyNodeDottedName:
					name = string(content[grandchild.StartByte():grandchild.EndByte()])
				}
			}
			modulePath = prefix + name
		case pyNodeDottedName:
			nameStr := string(content[child.StartByte():child.EndByte()])
			if !sawImport {
				// Before "import" keyword - this is the module path
				modulePath = nameStr
			} else {
				// After "import" keyword - this is an imported name
				names = append(names, nameStr)
			}
		case pyNodeWildcardImport:
			isWildcard = true
		case pyNodeAliasedImport:
			// from x import y as z
			var importName, alias string
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				switch grandchild.Type() {
				case pyNodeIdentifier:
					if importName == "" {
						importName = string(content[grandchild.StartByte():grandchild.EndByte()])
					} else {
						alias = string(content[grandchild.StartByte():grandchild.EndByte()])
					}
				case pyNodeDottedName:
					if importName == "" {
						importName = string(content[grandchild.StartByte():grandchild.EndByte()])
					}
				}
			}
			if alias != "" {
				names = append(names, importName+" as "+alias)
			} else if importName != "" {
				names = append(names, importName)
			}
		case pyNodeIdentifier:
			if sawImport {
				names = append(names, string(content[child.StartByte():child.EndByte()]))
			}
		}
	}

	if modulePath != "" || isRelative {
		if modulePath == "" && isRelative {
			// Bare "from . import x"
			modulePath = "."
		}
		p.addImport(node, modulePath, "", names, isWildcard, isRelative, filePath, result)
	}
}

// addImport records a single import statement in the result.
func (p *PythonParser) addImport(node *sitter.Node, path, alias string, names []string, isWildcard, isRelative bool, filePath string, result *ParseResult) {
	result.Imports = append(result.Imports, Import{
		Path:       path,
		Alias:      alias,
		Names:      names,
		IsWildcard: isWildcard,
		IsRelative: isRelative,
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
var _ Parser = (*PythonParser)(nil)
