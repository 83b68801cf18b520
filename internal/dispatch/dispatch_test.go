package dispatch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lcid-dev/lcid/internal/extractor"
	"github.com/lcid-dev/lcid/internal/registry"
	"github.com/lcid-dev/lcid/internal/semantic"
	"github.com/lcid-dev/lcid/internal/store"
	"github.com/lcid-dev/lcid/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(context.Background(), "repo1", filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := registry.New(0, nil)
	reg.Register("go", func() extractor.Extractor { return extractor.NewGoExtractor() })

	d := New(reg, st, []string{"go"})
	return d, st
}

func TestLookupReturnsIndexedSymbol(t *testing.T) {
	d, st := newTestDispatcher(t)
	ctx := context.Background()

	fileID, err := st.StoreFile(ctx, "repo1", "a.go", "go", "hash-a")
	require.NoError(t, err)
	require.NoError(t, st.ReplaceSymbols(ctx, fileID, []types.Symbol{{Name: "Run", Kind: types.KindFunction}}))

	sym, ok := d.Lookup(ctx, "Run")
	require.True(t, ok)
	require.Equal(t, "Run", sym.Name)
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, ok := d.Lookup(context.Background(), "DoesNotExist")
	require.False(t, ok)
}

func TestSearchFallsBackToBypassWhenForced(t *testing.T) {
	d, st := newTestDispatcher(t)
	ctx := context.Background()
	require.NoError(t, st.IndexFileContent(ctx, "a.go", "func Run() {}"))

	d.SetBypass(true)
	results, err := d.Search(ctx, "Run", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestIndexFileUsesSupportingExtractor(t *testing.T) {
	d, _ := newTestDispatcher(t)
	result, err := d.IndexFile(context.Background(), "main.go", []byte("package main\nfunc Run() {}\n"))
	require.NoError(t, err)

	var names []string
	for _, s := range result.Symbols {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "Run")
}

func TestIndexFileFallsBackToPlaintextForUnknownExtension(t *testing.T) {
	d, _ := newTestDispatcher(t)
	result, err := d.IndexFile(context.Background(), "notes.xyz", []byte("just text"))
	require.NoError(t, err)
	require.Empty(t, result.Symbols)
}

func TestSearchFindsPlainTextOccurrenceWithoutBypass(t *testing.T) {
	d, st := newTestDispatcher(t)
	ctx := context.Background()

	fileID, err := st.StoreFile(ctx, "repo1", "a.go", "go", "hash-a")
	require.NoError(t, err)
	require.NoError(t, st.ReplaceSymbols(ctx, fileID, []types.Symbol{{Name: "Run", Kind: types.KindFunction}}))
	require.NoError(t, st.IndexFileContent(ctx, "a.go", "func Run() {}\n// TODO: revisit thermostat calibration\n"))

	// "thermostat" never appears as a declared symbol name, only inside a comment, so
	// this can only be found via the code full-text index, not the symbol tables.
	results, err := d.Search(ctx, "thermostat", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestSearchDeletedFileContentNotReturned(t *testing.T) {
	d, st := newTestDispatcher(t)
	ctx := context.Background()

	fileID, err := st.StoreFile(ctx, "repo1", "mod2.go", "go", "hash-b")
	require.NoError(t, err)
	require.NoError(t, st.IndexFileContent(ctx, "mod2.go", "// marker: unobtainium-gearbox\n"))

	results, err := d.Search(ctx, "unobtainium", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	require.NoError(t, st.MarkFileDeleted(ctx, fileID))

	results, err = d.Search(ctx, "unobtainium", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchWidensWithStemmedQueryExpansion(t *testing.T) {
	d, st := newTestDispatcher(t)
	ctx := context.Background()

	fileID, err := st.StoreFile(ctx, "repo1", "a.go", "go", "hash-a")
	require.NoError(t, err)
	require.NoError(t, st.ReplaceSymbols(ctx, fileID, []types.Symbol{{Name: "authenticate", Kind: types.KindFunction}}))

	stemmer := semantic.NewStemmer(true, "porter2", 3, nil)
	fuzzy := semantic.NewFuzzyMatcher(false, 0.8, "jaro-winkler")
	d.SetQueryExpander(semantic.NewQueryExpander(stemmer, fuzzy, 10))

	results, err := d.Search(ctx, "authenticating", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}
