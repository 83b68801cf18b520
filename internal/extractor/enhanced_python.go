package extractor

import (
	"context"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/lcid-dev/lcid/internal/types"
)

// EnhancedPython extends the generic Python grammar walk with call-site and import
// reference extraction, the second of this repo's two Enhanced variants.
type EnhancedPython struct {
	*Generic
}

func NewEnhancedPython() *EnhancedPython {
	g := newGeneric("enhanced-python", []string{".py"}, tree_sitter_python.Language(), `
		(function_definition name: (identifier) @function.name) @function
		(class_definition name: (identifier) @class.name) @class
		(import_statement name: (dotted_name) @import.name) @import
		(import_from_statement module_name: (dotted_name) @import.name) @import
		(call function: (identifier) @call.name) @call
		(call function: (attribute attribute: (identifier) @call.name)) @call
	`)
	g.name = "enhanced-python"
	return &EnhancedPython{Generic: g}
}

func (e *EnhancedPython) Extract(ctx context.Context, path string, content []byte) (Result, error) {
	base, err := e.Generic.Extract(ctx, path, content)
	if err != nil {
		return base, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.language); err != nil {
		return base, nil
	}
	tree := parser.Parse(content, nil)
	if tree == nil {
		return base, nil
	}
	defer tree.Close()

	resolveMethodParents(base.Symbols, tree.RootNode(), content)

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(e.query, tree.RootNode(), content)
	captureNames := e.query.CaptureNames()

	var refs []types.Reference
	for {
		m := matches.Next()
		if m == nil {
			break
		}
		for _, c := range m.Captures {
			capName := captureNames[c.Index]
			node := c.Node
			start := node.StartPosition()
			switch capName {
			case "call.name":
				refs = append(refs, types.Reference{
					SymbolName: string(content[node.StartByte():node.EndByte()]),
					Line:       int(start.Row) + 1,
					Column:     int(start.Column) + 1,
					Kind:       types.RefCall,
				})
			case "import.name":
				refs = append(refs, types.Reference{
					SymbolName: string(content[node.StartByte():node.EndByte()]),
					Line:       int(start.Row) + 1,
					Column:     int(start.Column) + 1,
					Kind:       types.RefImport,
				})
			}
		}
	}
	base.References = refs
	return base, nil
}

// resolveMethodParents walks the parse tree for class bodies and promotes each
// directly-nested function_definition's Symbol from a plain function to a method owned
// by its enclosing class, matching Python's own nesting rules: a def inside a class body
// is a method, a def inside another def is just a closure and keeps its function kind.
func resolveMethodParents(symbols []types.Symbol, root *tree_sitter.Node, content []byte) {
	parents := classMethodParents(root, content)
	if len(parents) == 0 {
		return
	}
	for i := range symbols {
		sym := &symbols[i]
		if sym.Kind != types.KindFunction {
			continue
		}
		if parent, ok := parents[sym.Start.Line]; ok {
			sym.Kind = types.KindMethod
			sym.ParentName = parent
		}
	}
}

// classMethodParents maps a nested function_definition's 1-based start line to its
// enclosing class_definition's name, considering only methods declared directly in a
// class's body (not functions nested inside another function's body).
func classMethodParents(node *tree_sitter.Node, content []byte) map[int]string {
	parents := make(map[int]string)
	if node == nil {
		return parents
	}

	if node.Kind() == "class_definition" {
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			className := string(content[nameNode.StartByte():nameNode.EndByte()])
			if body := node.ChildByFieldName("body"); body != nil {
				for i := uint(0); i < body.ChildCount(); i++ {
					child := body.Child(i)
					if child != nil && child.Kind() == "function_definition" {
						parents[int(child.StartPosition().Row)+1] = className
					}
				}
			}
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		for line, className := range classMethodParents(node.Child(i), content) {
			parents[line] = className
		}
	}
	return parents
}
