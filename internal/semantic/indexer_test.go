package semantic

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcid-dev/lcid/internal/chunk"
)

type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failNext bool
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failNext {
		f.failNext = false
		return nil, errors.New("embedding provider unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i]))}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimension() int { return 1 }

type fakeVectorStore struct {
	mu      sync.Mutex
	byHash  map[string]chunk.Chunk
	vectors map[string][]float32
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{byHash: make(map[string]chunk.Chunk), vectors: make(map[string][]float32)}
}

func (f *fakeVectorStore) Exists(_ context.Context, contentHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byHash[contentHash]
	return ok, nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, c chunk.Chunk, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byHash[c.ContentHash] = c
	f.vectors[c.ContentHash] = vector
	return nil
}

func (f *fakeVectorStore) UpdatePath(_ context.Context, contentHash, newRelativePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byHash[contentHash]
	if !ok {
		return errors.New("not found")
	}
	c.RelativePath = newRelativePath
	f.byHash[contentHash] = c
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, k int) ([]SemanticMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SemanticMatch
	for _, c := range f.byHash {
		out = append(out, SemanticMatch{RelativePath: c.RelativePath, Content: c.Content})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func TestIndexFileEmbedsNewChunks(t *testing.T) {
	store := newFakeVectorStore()
	embedder := &fakeEmbedder{}
	ix := NewIndexer(chunk.NewChunker(400, 0), embedder, store)

	embedded, skipped, failed, err := ix.IndexFile(context.Background(), "a.go", []byte("func A() {}\n"))
	require.NoError(t, err)
	require.Equal(t, 1, embedded)
	require.Equal(t, 0, skipped)
	require.Equal(t, 0, failed)
}

func TestIndexFileSkipsUnchangedContent(t *testing.T) {
	store := newFakeVectorStore()
	embedder := &fakeEmbedder{}
	ix := NewIndexer(chunk.NewChunker(400, 0), embedder, store)
	ctx := context.Background()

	content := []byte("func A() {}\n")
	_, _, _, err := ix.IndexFile(ctx, "a.go", content)
	require.NoError(t, err)

	embedded, skipped, failed, err := ix.IndexFile(ctx, "a.go", content)
	require.NoError(t, err)
	require.Equal(t, 0, embedded)
	require.Equal(t, 1, skipped)
	require.Equal(t, 0, failed)
}

func TestIndexFileCountsEmbeddingFailureNonFatally(t *testing.T) {
	store := newFakeVectorStore()
	embedder := &fakeEmbedder{failNext: true}
	ix := NewIndexer(chunk.NewChunker(400, 0), embedder, store)

	_, _, failed, err := ix.IndexFile(context.Background(), "a.go", []byte("func A() {}\n"))
	require.NoError(t, err)
	require.Equal(t, 1, failed)
}

func TestHandleMoveRepointsWithoutReembedding(t *testing.T) {
	store := newFakeVectorStore()
	embedder := &fakeEmbedder{}
	ix := NewIndexer(chunk.NewChunker(400, 0), embedder, store)
	ctx := context.Background()

	content := []byte("func A() {}\n")
	_, _, _, err := ix.IndexFile(ctx, "old.go", content)
	require.NoError(t, err)
	require.Equal(t, 1, embedder.calls)

	require.NoError(t, ix.HandleMove(ctx, "new.go", content))
	require.Equal(t, 1, embedder.calls, "move without content change must not re-embed")

	matches, err := ix.SearchSemantic(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "new.go", matches[0].RelativePath)
}

func TestSearchSemanticEmbedsQuery(t *testing.T) {
	store := newFakeVectorStore()
	embedder := &fakeEmbedder{}
	ix := NewIndexer(chunk.NewChunker(400, 0), embedder, store)
	ctx := context.Background()

	_, _, _, err := ix.IndexFile(ctx, "a.go", []byte("func A() {}\n"))
	require.NoError(t, err)

	matches, err := ix.SearchSemantic(ctx, "A", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
}
