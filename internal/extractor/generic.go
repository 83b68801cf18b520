package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	lciderrors "github.com/lcid-dev/lcid/internal/errors"

	"github.com/lcid-dev/lcid/internal/types"
)

// capture name -> SymbolKind for the primary (non ".name") captures a query emits.
var captureKind = map[string]types.SymbolKind{
	"function":    types.KindFunction,
	"method":      types.KindMethod,
	"constructor": types.KindConstructor,
	"class":       types.KindClass,
	"struct":      types.KindStruct,
	"interface":   types.KindInterface,
	"trait":       types.KindTrait,
	"enum":        types.KindEnum,
	"type":        types.KindTypedef,
	"variable":    types.KindVariable,
	"field":       types.KindField,
	"namespace":   types.KindNamespace,
	"module":      types.KindModule,
}

// Generic is a grammar-driven extractor: one compiled tree-sitter language plus a query
// that tags declaration nodes with capture names this package already knows how to map
// onto Symbol kinds.
type Generic struct {
	name     string
	exts     map[string]bool
	language *tree_sitter.Language
	query    *tree_sitter.Query
	cache    *treeCache
}

func newGeneric(name string, exts []string, lang unsafe.Pointer, queryStr string) *Generic {
	language := tree_sitter.NewLanguage(lang)
	query, _ := tree_sitter.NewQuery(language, queryStr)
	// go-tree-sitter's NewQuery can return a typed-nil error on success; query != nil is
	// the reliable success check (a known quirk of the binding).

	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[e] = true
	}

	return &Generic{
		name:     name,
		exts:     extSet,
		language: language,
		query:    query,
		cache:    newTreeCache(100),
	}
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Supports(ext string) bool { return g.exts[strings.ToLower(ext)] }

func (g *Generic) EstimatedMemoryBytes() int64 {
	// Compiled grammars run a few hundred KB to low MB; a fixed estimate is accurate
	// enough for the registry's eviction heuristic, which otherwise measures deltas via
	// runtime.ReadMemStats and needs a static floor for grammars that amortize across
	// many files.
	return 2 << 20
}

func (g *Generic) Extract(ctx context.Context, path string, content []byte) (Result, error) {
	if g.query == nil {
		return Result{}, lciderrors.New(lciderrors.Unsupported, "extractor.Generic.Extract", nil).WithPath(path)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:]) // cache key: an edited file never reuses its stale tree
	tree, ok := g.cache.get(hash)
	if !ok {
		parser := tree_sitter.NewParser()
		defer parser.Close()
		if err := parser.SetLanguage(g.language); err != nil {
			return Result{}, lciderrors.New(lciderrors.Syntax, "extractor.Generic.Extract", err).WithPath(path)
		}
		parsed := parser.Parse(content, nil)
		if parsed == nil {
			return Result{}, lciderrors.New(lciderrors.Syntax, "extractor.Generic.Extract", nil).WithPath(path)
		}
		tree = parsed
		g.cache.put(hash, tree)
	}

	select {
	case <-ctx.Done():
		return Result{}, lciderrors.New(lciderrors.Timeout, "extractor.Generic.Extract", ctx.Err()).WithPath(path)
	default:
	}

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(g.query, tree.RootNode(), content)
	captureNames := g.query.CaptureNames()

	var out Result
	named := make(map[string]string, 4)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for k := range named {
			delete(named, k)
		}
		for _, c := range match.Captures {
			capName := captureNames[c.Index]
			if strings.Contains(capName, ".name") {
				named[capName] = string(content[c.Node.StartByte():c.Node.EndByte()])
			}
		}
		for _, c := range match.Captures {
			capName := captureNames[c.Index]
			kind, ok := captureKind[capName]
			if !ok {
				continue
			}
			node := c.Node
			name := named[capName+".name"]
			if name == "" {
				if nameNode := node.ChildByFieldName("name"); nameNode != nil {
					name = string(content[nameNode.StartByte():nameNode.EndByte()])
				}
			}
			if name == "" {
				continue
			}
			start := node.StartPosition()
			end := node.EndPosition()
			out.Symbols = append(out.Symbols, types.Symbol{
				Name:  name,
				Kind:  kind,
				Start: types.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
				End:   types.Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
			})
		}
	}

	return out, nil
}

// NewGoExtractor returns the Generic extractor for Go source.
func NewGoExtractor() *Generic {
	return newGeneric("generic-go", []string{".go"}, tree_sitter_go.Language(), `
		(function_declaration name: (identifier) @function.name) @function
		(method_declaration name: (field_identifier) @method.name) @method
		(type_declaration (type_spec name: (type_identifier) @type.name)) @type
		(import_spec path: (interpreted_string_literal) @import.path) @import
	`)
}

// NewPythonExtractor returns the Generic extractor for Python source.
func NewPythonExtractor() *Generic {
	return newGeneric("generic-python", []string{".py"}, tree_sitter_python.Language(), `
		(function_definition name: (identifier) @function.name) @function
		(class_definition name: (identifier) @class.name) @class
		(import_statement) @import
		(import_from_statement) @import
	`)
}

// NewJavaScriptExtractor returns the Generic extractor for JavaScript/JSX source.
func NewJavaScriptExtractor() *Generic {
	return newGeneric("generic-javascript", []string{".js", ".jsx", ".mjs"}, tree_sitter_javascript.Language(), `
		(function_declaration name: (identifier) @function.name) @function
		(method_definition name: (property_identifier) @method.name) @method
		(class_declaration name: (identifier) @class.name) @class
		(variable_declarator
			name: (identifier) @variable.name
			value: (_) @variable.value) @variable
		(import_statement source: (string) @import.source) @import
	`)
}

// NewTypeScriptExtractor returns the Generic extractor for TypeScript/TSX source.
func NewTypeScriptExtractor() *Generic {
	return newGeneric("generic-typescript", []string{".ts", ".tsx"}, tree_sitter_typescript.LanguageTypescript(), `
		(function_declaration name: (identifier) @function.name) @function
		(method_definition name: (property_identifier) @method.name) @method
		(class_declaration name: (type_identifier) @class.name) @class
		(interface_declaration name: (type_identifier) @interface.name) @interface
		(type_alias_declaration name: (type_identifier) @type.name) @type
		(enum_declaration name: (identifier) @enum.name) @enum
		(import_statement source: (string) @import.source) @import
	`)
}

// NewJavaExtractor returns the Generic extractor for Java source.
func NewJavaExtractor() *Generic {
	return newGeneric("generic-java", []string{".java"}, tree_sitter_java.Language(), `
		(method_declaration name: (identifier) @method.name) @method
		(constructor_declaration name: (identifier) @constructor.name) @constructor
		(class_declaration name: (identifier) @class.name) @class
		(record_declaration name: (identifier) @class.name) @class
		(interface_declaration name: (identifier) @interface.name) @interface
		(enum_declaration name: (identifier) @enum.name) @enum
		(field_declaration declarator: (variable_declarator name: (identifier) @field.name)) @field
		(import_declaration) @import
	`)
}
