package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/lcid-dev/lcid/internal/chunk"
	lciderrors "github.com/lcid-dev/lcid/internal/errors"
)

// SemanticMatch is one nearest-neighbor hit from a vector search, carrying enough of the chunk's identity for the Coordinator to
// fuse it with full-text results.
type SemanticMatch struct {
	RelativePath string
	StartLine    int
	EndLine      int
	Content      string
	Score        float32
}

// VectorStore wraps a Qdrant collection holding one point per chunk, keyed by a
// deterministic UUID derived from the chunk's content hash: chunk identity and dedup
// are keyed by content_hash, not path.
type VectorStore struct {
	client     *qdrant.Client
	collection string
}

// NewVectorStore connects to the Qdrant instance at endpoint and targets collection.
func NewVectorStore(endpoint, collection string) (*VectorStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: endpoint})
	if err != nil {
		return nil, lciderrors.New(lciderrors.IO, "semantic.NewVectorStore", err)
	}
	return &VectorStore{client: client, collection: collection}, nil
}

// Close releases the underlying Qdrant connection.
func (v *VectorStore) Close() error {
	return v.client.Close()
}

// EnsureCollection creates the collection if it doesn't already exist, sized for
// vectorSize-dimension vectors under cosine distance.
func (v *VectorStore) EnsureCollection(ctx context.Context, vectorSize int) error {
	exists, err := v.client.CollectionExists(ctx, v.collection)
	if err != nil {
		return lciderrors.New(lciderrors.IO, "semantic.EnsureCollection", err)
	}
	if exists {
		return nil
	}
	if err := v.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return lciderrors.New(lciderrors.IO, "semantic.EnsureCollection", err)
	}
	return nil
}

// pointID derives a deterministic UUID from a chunk's content hash, so two chunks with
// identical content (anywhere, at any path) collapse onto the same point: re-embedding
// the same content twice is wasted work the content-hash key is meant to avoid.
func pointID(contentHash string) string {
	sum := sha256.Sum256([]byte(contentHash))
	hexSum := hex.EncodeToString(sum[:16])
	return fmt.Sprintf("%s-%s-%s-%s-%s", hexSum[0:8], hexSum[8:12], hexSum[12:16], hexSum[16:20], hexSum[20:32])
}

// Exists reports whether a point for contentHash is already stored, letting the
// Semantic Indexer skip re-embedding unchanged chunk content.
func (v *VectorStore) Exists(ctx context.Context, contentHash string) (bool, error) {
	points, err := v.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: v.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(pointID(contentHash))},
	})
	if err != nil {
		return false, lciderrors.New(lciderrors.IO, "semantic.Exists", err)
	}
	return len(points) > 0, nil
}

// get fetches the single stored point for contentHash, including its vector, so
// UpdatePath can re-upsert an unchanged vector under a new payload without calling the
// embedding client again.
func (v *VectorStore) get(ctx context.Context, contentHash string) (*qdrant.RetrievedPoint, error) {
	points, err := v.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: v.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(pointID(contentHash))},
		WithVectors:    qdrant.NewWithVectors(true),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, lciderrors.New(lciderrors.IO, "semantic.get", err)
	}
	if len(points) == 0 {
		return nil, lciderrors.New(lciderrors.NotFound, "semantic.get", nil).WithPath(contentHash)
	}
	return points[0], nil
}

// Upsert stores vector for a newly-embedded chunk, keyed by its content hash.
func (v *VectorStore) Upsert(ctx context.Context, c chunk.Chunk, vector []float32) error {
	payload := map[string]interface{}{
		"relative_path": c.RelativePath,
		"start_line":    c.StartLine,
		"end_line":      c.EndLine,
		"content":       c.Content,
		"content_hash":  c.ContentHash,
	}
	_, err := v.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: v.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(pointID(c.ContentHash)),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return lciderrors.New(lciderrors.IO, "semantic.Upsert", err)
	}
	return nil
}

// UpdatePath repoints an already-embedded chunk's relative_path payload field without
// calling the embedding client again: it re-upserts the point's existing vector under an
// updated payload, keyed by content_hash.
func (v *VectorStore) UpdatePath(ctx context.Context, contentHash, newRelativePath string) error {
	existing, err := v.get(ctx, contentHash)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"relative_path": newRelativePath,
		"start_line":    payloadInt(existing.Payload, "start_line"),
		"end_line":      payloadInt(existing.Payload, "end_line"),
		"content":       payloadString(existing.Payload, "content"),
		"content_hash":  contentHash,
	}
	_, err = v.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: v.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(pointID(contentHash)),
			Vectors: existing.Vectors,
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return lciderrors.New(lciderrors.IO, "semantic.UpdatePath", err)
	}
	return nil
}

// Search returns the k nearest chunks to vector by cosine similarity.
func (v *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]SemanticMatch, error) {
	results, err := v.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: v.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, lciderrors.New(lciderrors.IO, "semantic.Search", err)
	}

	matches := make([]SemanticMatch, len(results))
	for i, r := range results {
		matches[i] = SemanticMatch{
			RelativePath: payloadString(r.Payload, "relative_path"),
			StartLine:    payloadInt(r.Payload, "start_line"),
			EndLine:      payloadInt(r.Payload, "end_line"),
			Content:      payloadString(r.Payload, "content"),
			Score:        r.Score,
		}
	}
	return matches, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func payloadInt(payload map[string]*qdrant.Value, key string) int {
	if v, ok := payload[key]; ok {
		return int(v.GetIntegerValue())
	}
	return 0
}
