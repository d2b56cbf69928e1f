package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewEmbeddingService(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{APIKey: "k"})

	assert.Equal(t, "text-embedding-004", s.ModelName())
	assert.Equal(t, 768, s.Dimensions())
}

func TestEmbed(t *testing.T) {
	var gotPath, gotKey string
	var gotBody embedRequest

	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.1, 0.2, 0.3}},
		})
	})

	embedding, err := s.Embed(context.Background(), "company overview")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, embedding)
	assert.Equal(t, "/v1beta/models/text-embedding-004:embedContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "models/text-embedding-004", gotBody.Model)
	require.Len(t, gotBody.Content.Parts, 1)
	assert.Equal(t, "company overview", gotBody.Content.Parts[0].Text)
}

func TestEmbed_RateLimited(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := s.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestEmbed_ServerError(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := s.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestEmbed_EmptyEmbedding(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": map[string]any{}})
	})

	_, err := s.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestEmbedBatch(t *testing.T) {
	var gotPath string

	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req batchEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 2)

		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": []map[string]any{
				{"values": []float32{1, 0}},
				{"values": []float32{0, 1}},
			},
		})
	})

	embeddings, err := s.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/text-embedding-004:batchEmbedContents", gotPath)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{1, 0}, embeddings[0])
	assert.Equal(t, []float32{0, 1}, embeddings[1])
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": []map[string]any{{"values": []float32{1}}},
		})
	})

	_, err := s.EmbedBatch(context.Background(), []string{"one", "two"})
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestPing(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/text-embedding-004", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"name": "models/text-embedding-004"})
	})

	assert.NoError(t, s.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	s := NewEmbeddingService(Config{
		APIKey:  "k",
		BaseURL: "http://127.0.0.1:1",
	})

	err := s.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}
