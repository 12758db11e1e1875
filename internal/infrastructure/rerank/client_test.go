package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/config"
)

func testChunks() []pipeline.RetrievedChunk {
	return []pipeline.RetrievedChunk{
		{ID: "chunk-1", Text: "pressure in a closed vessel", Score: 0.91},
		{ID: "chunk-2", Text: "valve maintenance schedule", Score: 0.88},
		{ID: "chunk-3", Text: "emergency shutdown procedure", Score: 0.85},
	}
}

func newTestClient(endpoint string) *Client {
	return NewClient(&config.RerankConfig{
		Endpoint: endpoint,
		APIKey:   "test-key",
		Model:    "test-reranker",
		Timeout:  5 * time.Second,
	})
}

func TestRerankReordersAndOverwritesScores(t *testing.T) {
	var gotReq rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(&rerankResponse{Results: []rerankResult{
			{Index: 2, RelevanceScore: 0.99},
			{Index: 0, RelevanceScore: 0.42},
		}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	out, err := client.Rerank(context.Background(), "how to shut down safely", testChunks(), 2)
	require.NoError(t, err)

	assert.Equal(t, "test-reranker", gotReq.Model)
	assert.Equal(t, "how to shut down safely", gotReq.Query)
	assert.Len(t, gotReq.Documents, 3)
	assert.Equal(t, 2, gotReq.TopN)

	require.Len(t, out, 2)
	assert.Equal(t, "chunk-3", out[0].ID)
	assert.Equal(t, float32(0.99), out[0].Score)
	assert.Equal(t, "chunk-1", out[1].ID)
	assert.Equal(t, float32(0.42), out[1].Score)
}

func TestRerankTruncatesWhenServerIgnoresTopN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&rerankResponse{Results: []rerankResult{
			{Index: 1, RelevanceScore: 0.9},
			{Index: 0, RelevanceScore: 0.8},
			{Index: 2, RelevanceScore: 0.7},
		}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	out, err := client.Rerank(context.Background(), "q", testChunks(), 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "chunk-2", out[0].ID)
}

func TestRerankEmptyInputSkipsRequest(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	out, err := client.Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRerankRejectsOutOfRangeIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&rerankResponse{Results: []rerankResult{
			{Index: 7, RelevanceScore: 0.9},
		}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Rerank(context.Background(), "q", testChunks(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out-of-range")
}

func TestRerankPropagatesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Rerank(context.Background(), "q", testChunks(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}

func TestRerankRequiresEndpoint(t *testing.T) {
	client := newTestClient("")
	_, err := client.Rerank(context.Background(), "q", testChunks(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is empty")
}
