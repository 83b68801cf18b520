package semantic

import (
	"context"

	"github.com/lcid-dev/lcid/internal/chunk"
	"github.com/lcid-dev/lcid/internal/embedding"
)

// vectorStore is the subset of *VectorStore's methods the Indexer depends on, kept as
// an interface so tests can substitute an in-memory fake instead of a live Qdrant
// instance.
type vectorStore interface {
	Exists(ctx context.Context, contentHash string) (bool, error)
	Upsert(ctx context.Context, c chunk.Chunk, vector []float32) error
	UpdatePath(ctx context.Context, contentHash, newRelativePath string) error
	Search(ctx context.Context, vector []float32, k int) ([]SemanticMatch, error)
}

// Indexer implements the indexing and querying rules over a chunker, an
// embedding client and a vector store: on file change, unseen chunk hashes get
// embedded and upserted; unchanged chunk hashes are skipped; a pure path move re-points
// the stored payload without a new embedding call.
type Indexer struct {
	chunker  *chunk.Chunker
	embedder embedding.Client
	store    vectorStore
}

// NewIndexer builds a Semantic Indexer over chunker, embedder and store. Any of the
// three may be swapped independently (e.g. a different embedding provider) without
// touching the others.
func NewIndexer(chunker *chunk.Chunker, embedder embedding.Client, store *VectorStore) *Indexer {
	return &Indexer{chunker: chunker, embedder: embedder, store: store}
}

// IndexFile chunks content and embeds every chunk whose content hash isn't already
// stored. An embedding failure for one chunk is non-fatal: it's skipped
// and reported to the caller as a count rather than aborting the remaining chunks, so a
// later re-index attempt can retry it.
func (ix *Indexer) IndexFile(ctx context.Context, relativePath string, content []byte) (embedded, skipped, failed int, err error) {
	chunks := ix.chunker.Chunk(relativePath, content)
	for _, c := range chunks {
		exists, existsErr := ix.store.Exists(ctx, c.ContentHash)
		if existsErr != nil {
			return embedded, skipped, failed, existsErr
		}
		if exists {
			skipped++
			continue
		}

		vectors, embedErr := ix.embedder.Embed(ctx, []string{c.Content})
		if embedErr != nil || len(vectors) == 0 {
			failed++
			continue
		}
		if upsertErr := ix.store.Upsert(ctx, c, vectors[0]); upsertErr != nil {
			failed++
			continue
		}
		embedded++
	}
	return embedded, skipped, failed, nil
}

// HandleMove re-chunks the file at its new path and repoints every chunk whose content
// is unchanged (hash still present in the store) to the new relative path, without
// calling the embedding client again.
func (ix *Indexer) HandleMove(ctx context.Context, newRelativePath string, content []byte) error {
	chunks := ix.chunker.Chunk(newRelativePath, content)
	for _, c := range chunks {
		exists, err := ix.store.Exists(ctx, c.ContentHash)
		if err != nil {
			return err
		}
		if !exists {
			continue // content changed alongside the move: IndexFile handles embedding it fresh
		}
		if err := ix.store.UpdatePath(ctx, c.ContentHash, newRelativePath); err != nil {
			return err
		}
	}
	return nil
}

// SearchSemantic embeds query and returns the k nearest chunks by cosine similarity.
func (ix *Indexer) SearchSemantic(ctx context.Context, query string, k int) ([]SemanticMatch, error) {
	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return ix.store.Search(ctx, vectors[0], k)
}
