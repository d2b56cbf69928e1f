package ollama

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

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})

	assert.Equal(t, "nomic-embed-text", s.ModelName())
	assert.Equal(t, 768, s.Dimensions())
}

func TestEmbed(t *testing.T) {
	var gotBody embedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float64{0.5, -0.25},
		})
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL})

	embedding, err := s.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.5, -0.25}, embedding)
	assert.Equal(t, "nomic-embed-text", gotBody.Model)
	assert.Equal(t, "hello", gotBody.Prompt)
}

func TestEmbed_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL})

	_, err := s.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL})
	assert.NoError(t, s.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	s := NewEmbeddingService(Config{BaseURL: "http://127.0.0.1:1"})

	err := s.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}
