package extractor

import (
	"context"
	"testing"

	"github.com/lcid-dev/lcid/internal/types"
	"github.com/stretchr/testify/require"
)

func TestGoExtractorFindsFunctionsAndTypes(t *testing.T) {
	src := []byte(`package main

func Greet(name string) string {
	return "hello " + name
}

type Widget struct {
	ID int
}
`)
	g := NewGoExtractor()
	result, err := g.Extract(context.Background(), "widget.go", src)
	require.NoError(t, err)

	var names []string
	for _, s := range result.Symbols {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "Greet")
	require.Contains(t, names, "Widget")
}

func TestEnhancedGoFindsCallReferences(t *testing.T) {
	src := []byte(`package main

func helper() {}

func main() {
	helper()
}
`)
	e := NewEnhancedGo()
	result, err := e.Extract(context.Background(), "main.go", src)
	require.NoError(t, err)

	found := false
	for _, r := range result.References {
		if r.SymbolName == "helper" && r.Kind == types.RefCall {
			found = true
		}
	}
	require.True(t, found, "expected a call reference to helper")
}

func TestPlaintextExtractorAlwaysSupports(t *testing.T) {
	p := NewPlaintext()
	require.True(t, p.Supports(".unknownext"))
	result, err := p.Extract(context.Background(), "file.unknownext", []byte("anything"))
	require.NoError(t, err)
	require.Empty(t, result.Symbols)
}

func TestGenericExtractorSupportsRegisteredExtensionsOnly(t *testing.T) {
	g := NewPythonExtractor()
	require.True(t, g.Supports(".py"))
	require.False(t, g.Supports(".go"))
}

func TestEnhancedGoAttributesMethodToReceiverType(t *testing.T) {
	src := []byte(`package main

type Widget struct{}

func (w *Widget) Draw() {}

func Standalone() {}
`)
	e := NewEnhancedGo()
	result, err := e.Extract(context.Background(), "widget.go", src)
	require.NoError(t, err)

	var draw, standalone *types.Symbol
	for i, s := range result.Symbols {
		switch s.Name {
		case "Draw":
			draw = &result.Symbols[i]
		case "Standalone":
			standalone = &result.Symbols[i]
		}
	}
	require.NotNil(t, draw)
	require.Equal(t, types.KindMethod, draw.Kind)
	require.Equal(t, "Widget", draw.ParentName)

	require.NotNil(t, standalone)
	require.Equal(t, types.KindFunction, standalone.Kind)
	require.Empty(t, standalone.ParentName)
}

func TestEnhancedPythonAttributesNestedDefToEnclosingClass(t *testing.T) {
	src := []byte(`class Widget:
    def draw(self):
        pass

def standalone():
    pass
`)
	e := NewEnhancedPython()
	result, err := e.Extract(context.Background(), "widget.py", src)
	require.NoError(t, err)

	var draw, standalone *types.Symbol
	for i, s := range result.Symbols {
		switch s.Name {
		case "draw":
			draw = &result.Symbols[i]
		case "standalone":
			standalone = &result.Symbols[i]
		}
	}
	require.NotNil(t, draw)
	require.Equal(t, types.KindMethod, draw.Kind)
	require.Equal(t, "Widget", draw.ParentName)

	require.NotNil(t, standalone)
	require.Equal(t, types.KindFunction, standalone.Kind)
	require.Empty(t, standalone.ParentName)
}

func TestEnhancedPythonClosureStaysFunctionKind(t *testing.T) {
	src := []byte(`def outer():
    def inner():
        pass
    return inner
`)
	e := NewEnhancedPython()
	result, err := e.Extract(context.Background(), "closures.py", src)
	require.NoError(t, err)

	for _, s := range result.Symbols {
		if s.Name == "inner" {
			require.Equal(t, types.KindFunction, s.Kind)
			require.Empty(t, s.ParentName)
		}
	}
}
