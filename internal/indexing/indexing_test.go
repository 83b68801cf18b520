package indexing

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lcid-dev/lcid/internal/dispatch"
	"github.com/lcid-dev/lcid/internal/extractor"
	"github.com/lcid-dev/lcid/internal/pathresolve"
	"github.com/lcid-dev/lcid/internal/registry"
	"github.com/lcid-dev/lcid/internal/store"
	"github.com/lcid-dev/lcid/internal/watch"
	"github.com/stretchr/testify/require"
)

func newTestIndexer(t *testing.T) (*Indexer, string, *pathresolve.Resolver) {
	t.Helper()
	root := t.TempDir()
	ctx := context.Background()

	resolver, err := pathresolve.New(ctx, root)
	require.NoError(t, err)

	st, err := store.Open(ctx, resolver.RepositoryID(), filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := registry.New(0, nil)
	reg.Register("go", func() extractor.Extractor { return extractor.NewGoExtractor() })
	d := dispatch.New(reg, st, []string{"go"})

	return New(resolver, d, st, 2), root, resolver
}

func TestIndexOneStoresSymbolsAndContent(t *testing.T) {
	ix, root, resolver := newTestIndexer(t)
	ctx := context.Background()

	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\nfunc Run() {}\n"), 0o644))

	ix.indexWithRetry(ctx, path)

	state, ok := ix.StateOf("a.go")
	require.True(t, ok)
	require.Equal(t, StateStored, state)

	f, err := ix.store.GetFile(ctx, resolver.RepositoryID(), "a.go")
	require.NoError(t, err)
	require.False(t, f.Deleted)

	defs, err := ix.store.GetDefinition(ctx, "Run", "")
	require.NoError(t, err)
	require.Len(t, defs, 1)
}

func TestIndexOneSkipsUnchangedContentHash(t *testing.T) {
	ix, root, _ := newTestIndexer(t)
	ctx := context.Background()

	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\nfunc Run() {}\n"), 0o644))

	ix.indexWithRetry(ctx, path)
	ix.indexWithRetry(ctx, path) // second pass over identical content must be a no-op

	defs, err := ix.store.GetDefinition(ctx, "Run", "")
	require.NoError(t, err)
	require.Len(t, defs, 1)
}

func TestHandleDeleteMarksFileDeleted(t *testing.T) {
	ix, root, resolver := newTestIndexer(t)
	ctx := context.Background()

	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\nfunc Run() {}\n"), 0o644))
	ix.indexWithRetry(ctx, path)

	require.NoError(t, os.Remove(path))
	ix.handleDelete(ctx, path)

	state, ok := ix.StateOf("a.go")
	require.True(t, ok)
	require.Equal(t, StateDeleted, state)

	f, err := ix.store.GetFile(ctx, resolver.RepositoryID(), "a.go")
	require.NoError(t, err)
	require.True(t, f.Deleted)
}

func TestHandleMoveWithoutEditPreservesSymbolIdentity(t *testing.T) {
	ix, root, resolver := newTestIndexer(t)
	ctx := context.Background()

	oldPath := filepath.Join(root, "a.go")
	newPath := filepath.Join(root, "b.go")
	require.NoError(t, os.WriteFile(oldPath, []byte("package main\nfunc Run() {}\n"), 0o644))
	ix.indexWithRetry(ctx, oldPath)

	require.NoError(t, os.Rename(oldPath, newPath))
	ix.handleMove(ctx, oldPath, newPath)

	_, err := ix.store.GetFile(ctx, resolver.RepositoryID(), "b.go")
	require.NoError(t, err)

	defs, err := ix.store.GetDefinition(ctx, "Run", "")
	require.NoError(t, err)
	require.Len(t, defs, 1, "the symbol should survive the move under the same identity, not duplicate")
}

func TestHandleMoveWithEditTreatsAsDeleteThenCreate(t *testing.T) {
	ix, root, resolver := newTestIndexer(t)
	ctx := context.Background()

	oldPath := filepath.Join(root, "a.go")
	newPath := filepath.Join(root, "b.go")
	require.NoError(t, os.WriteFile(oldPath, []byte("package main\nfunc Run() {}\n"), 0o644))
	ix.indexWithRetry(ctx, oldPath)

	require.NoError(t, os.Remove(oldPath))
	require.NoError(t, os.WriteFile(newPath, []byte("package main\nfunc Stop() {}\n"), 0o644))
	ix.handleMove(ctx, oldPath, newPath)

	oldFile, err := ix.store.GetFile(ctx, resolver.RepositoryID(), "a.go")
	require.NoError(t, err)
	require.True(t, oldFile.Deleted)

	defs, err := ix.store.GetDefinition(ctx, "Stop", "")
	require.NoError(t, err)
	require.Len(t, defs, 1)
}

type fakeSemanticIndexer struct {
	mu         sync.Mutex
	indexCalls int
	moveCalls  int
	lastPath   string
}

func (f *fakeSemanticIndexer) IndexFile(_ context.Context, relativePath string, _ []byte) (int, int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexCalls++
	f.lastPath = relativePath
	return 1, 0, 0, nil
}

func (f *fakeSemanticIndexer) HandleMove(_ context.Context, newRelativePath string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls++
	f.lastPath = newRelativePath
	return nil
}

func TestIndexOneEmbedsThroughSemanticIndexerWhenSet(t *testing.T) {
	ix, root, _ := newTestIndexer(t)
	ctx := context.Background()
	sem := &fakeSemanticIndexer{}
	ix.SetSemanticIndexer(sem)

	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\nfunc Run() {}\n"), 0o644))
	ix.indexWithRetry(ctx, path)

	sem.mu.Lock()
	defer sem.mu.Unlock()
	require.Equal(t, 1, sem.indexCalls)
	require.Equal(t, "a.go", sem.lastPath)
}

func TestHandleMoveRepointsSemanticIndexerWithoutReembeddingOnCleanRename(t *testing.T) {
	ix, root, _ := newTestIndexer(t)
	ctx := context.Background()
	sem := &fakeSemanticIndexer{}
	ix.SetSemanticIndexer(sem)

	oldPath := filepath.Join(root, "a.go")
	newPath := filepath.Join(root, "b.go")
	require.NoError(t, os.WriteFile(oldPath, []byte("package main\nfunc Run() {}\n"), 0o644))
	ix.indexWithRetry(ctx, oldPath)

	require.NoError(t, os.Rename(oldPath, newPath))
	ix.handleMove(ctx, oldPath, newPath)

	sem.mu.Lock()
	defer sem.mu.Unlock()
	require.Equal(t, 1, sem.indexCalls, "the original create must still have embedded once")
	require.Equal(t, 1, sem.moveCalls, "a clean rename must repoint, not re-embed")
	require.Equal(t, "b.go", sem.lastPath)
}

func TestRunProcessesEventsFromWatcher(t *testing.T) {
	ix, root, resolver := newTestIndexer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan watch.Event, 1)
	done := make(chan struct{})
	go func() {
		ix.Run(ctx, events)
		close(done)
	}()

	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\nfunc Run() {}\n"), 0o644))
	events <- watch.Event{Kind: watch.Created, Path: path}

	require.Eventually(t, func() bool {
		f, err := ix.store.GetFile(context.Background(), resolver.RepositoryID(), "a.go")
		return err == nil && !f.Deleted
	}, 2*time.Second, 10*time.Millisecond)

	close(events)
	<-done
}

func TestIndexPathIndexesASingleFileOutsideTheWatchStream(t *testing.T) {
	ix, root, resolver := newTestIndexer(t)
	ctx := context.Background()

	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\nfunc Run() {}\n"), 0o644))

	require.NoError(t, ix.IndexPath(ctx, path))

	f, err := ix.store.GetFile(ctx, resolver.RepositoryID(), "a.go")
	require.NoError(t, err)
	require.False(t, f.Deleted)
}

func TestIndexTreeWalksRootHonoringFilters(t *testing.T) {
	ix, root, resolver := newTestIndexer(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package main\nfunc A() {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "b.go"), []byte("package main\nfunc B() {}\n"), 0o644))

	ix.SetFilters(nil, []string{"vendor/**"})

	count, err := ix.IndexTree(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = ix.store.GetFile(ctx, resolver.RepositoryID(), "a.go")
	require.NoError(t, err)
	_, err = ix.store.GetFile(ctx, resolver.RepositoryID(), filepath.Join("vendor", "b.go"))
	require.Error(t, err)
}
