// Package embedding provides the Semantic Indexer's embedding-model collaborator:
// a small Client interface plus one HTTP-based reference implementation, wired behind
// the engine's embedding_model/enable_semantic config.
package embedding

import "context"

// Client generates vector embeddings for chunk content. The concrete embedding-model
// HTTP API is an external collaborator; this interface is all the
// Semantic Indexer depends on, so any provider can be substituted.
type Client interface {
	// Embed returns one vector per text, in the same order as texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the vector length this client's model produces.
	Dimension() int
}
