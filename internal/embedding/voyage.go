package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lciderrors "github.com/lcid-dev/lcid/internal/errors"
)

const voyageAPIURL = "https://api.voyageai.com/v1/embeddings"

// VoyageClient is the reference Client implementation, backed by the Voyage AI
// embeddings API over the model configured via the embedding_model.
type VoyageClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewVoyageClient creates a Voyage embedding client for model, authenticated with
// apiKey.
func NewVoyageClient(apiKey, model string) *VoyageClient {
	return &VoyageClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: voyageAPIURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type voyageRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type,omitempty"`
}

type voyageResponse struct {
	Data []voyageEmbedding `json:"data"`
}

type voyageEmbedding struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// Embed generates embeddings for texts, returned in the same order. Failures are
// returned as lciderrors errors (IO or Timeout kinds); the Semantic Indexer treats them
// as non-fatal, skipping the chunk so the next indexing event retries it.
func (c *VoyageClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(voyageRequest{Input: texts, Model: c.model, InputType: "document"})
	if err != nil {
		return nil, lciderrors.New(lciderrors.IO, "embedding.Embed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, lciderrors.New(lciderrors.IO, "embedding.Embed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, lciderrors.New(lciderrors.Timeout, "embedding.Embed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, lciderrors.New(lciderrors.IO, "embedding.Embed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, lciderrors.New(lciderrors.IO, "embedding.Embed",
			fmt.Errorf("voyage API status %d: %s", resp.StatusCode, respBody))
	}

	var decoded voyageResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, lciderrors.New(lciderrors.IO, "embedding.Embed", err)
	}

	vectors := make([][]float32, len(texts))
	for _, emb := range decoded.Data {
		if emb.Index >= 0 && emb.Index < len(vectors) {
			vectors[emb.Index] = emb.Embedding
		}
	}
	return vectors, nil
}

// Dimension returns the vector length for the configured model.
func (c *VoyageClient) Dimension() int {
	switch c.model {
	case "voyage-4-lite", "voyage-3-lite":
		return 512
	default:
		return 1024
	}
}
