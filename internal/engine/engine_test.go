package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcid-dev/lcid/internal/config"
	lciderrors "github.com/lcid-dev/lcid/internal/errors"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package main\nfunc Run() {}\n"), 0o644))

	cfg := config.Default(root)
	cfg.IndexStorageRoot = t.TempDir()

	e, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestReindexThenSymbolLookupFindsDefinition(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	count, err := e.Reindex(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.Eventually(t, func() bool {
		sym, ok, err := e.SymbolLookup(ctx, "Run")
		return err == nil && ok && sym.Name == "Run"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSearchCodeFindsIndexedContent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Reindex(ctx, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		results, err := e.SearchCode(ctx, "Run", false, 10)
		return err == nil && len(results) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetStatusReportsIndexedFiles(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Reindex(ctx, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := e.GetStatus(ctx)
		return err == nil && status.Files == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListExtractorsReportsTheStaticCatalogue(t *testing.T) {
	e := newTestEngine(t)
	extractors := e.ListExtractors(context.Background())
	require.Len(t, extractors, len(languageCatalogue))

	var gotGo bool
	for _, x := range extractors {
		if x.Language == "go" {
			gotGo = true
			require.True(t, x.Enhanced)
			require.Contains(t, x.Suffixes, ".go")
		}
	}
	require.True(t, gotGo)
}

func TestReindexOnAMissingPathReturnsIOError(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Reindex(context.Background(), "does/not/exist.go")
	require.Error(t, err)
	kind, ok := lciderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lciderrors.IO, kind)
}
