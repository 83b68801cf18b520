package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbedEmptyInputReturnsNil(t *testing.T) {
	c := NewVoyageClient("key", "voyage-3")
	vecs, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, vecs)
}

func TestEmbedParsesOrderedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req voyageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"a", "b"}, req.Input)

		_ = json.NewEncoder(w).Encode(voyageResponse{Data: []voyageEmbedding{
			{Index: 1, Embedding: []float32{0.2}},
			{Index: 0, Embedding: []float32{0.1}},
		}})
	}))
	defer srv.Close()

	c := NewVoyageClient("test-key", "voyage-3")
	c.baseURL = srv.URL

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{0.1}, {0.2}}, vecs)
}

func TestEmbedReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	c := NewVoyageClient("test-key", "voyage-3")
	c.baseURL = srv.URL

	_, err := c.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
}

func TestDimensionVariesByModel(t *testing.T) {
	require.Equal(t, 512, NewVoyageClient("k", "voyage-3-lite").Dimension())
	require.Equal(t, 1024, NewVoyageClient("k", "voyage-3").Dimension())
}
