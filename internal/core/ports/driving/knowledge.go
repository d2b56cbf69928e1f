package driving

import (
	"context"
	"time"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
)

// KnowledgeService owns the persisted embedding index: it materializes
// it from a document source, keeps embeddings current, and answers
// top-k similarity queries.
//
// Load, Refresh, EnsureEmbeddings and Persist mutate shared state and
// must be serialized by the caller. Search may run concurrently with
// itself.
type KnowledgeService interface {
	// Load populates the in-memory index from the persisted snapshot.
	// A corrupt or unreadable snapshot is not fatal: the index resets
	// to empty and rebuilds from the source.
	Load(ctx context.Context) error

	// IsInitialized reports whether a persisted snapshot exists and the
	// in-memory index is non-empty. A liveness check, not freshness.
	IsInitialized(ctx context.Context) bool

	// Refresh pulls the current source listing and upserts every
	// supported document. Unchanged content keeps its embedding;
	// changed content clears it for recomputation. Per-file failures
	// are logged and skipped.
	Refresh(ctx context.Context) error

	// EnsureEmbeddings computes embeddings for every document that has
	// none. Idempotent: a rerun after a partial failure only computes
	// what is still missing.
	EnsureEmbeddings(ctx context.Context) error

	// Persist atomically writes the index to storage.
	Persist(ctx context.Context) error

	// Search ranks embedded documents by cosine similarity to the query
	// embedding and returns the topK best, ties broken by id ascending.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]domain.ScoredDocument, error)

	// DocumentCount returns the number of documents in the index.
	DocumentCount() int

	// EmbeddedCount returns the number of documents with an embedding.
	EmbeddedCount() int

	// LastUpdated returns the time of the last successful persist.
	LastUpdated() time.Time
}
