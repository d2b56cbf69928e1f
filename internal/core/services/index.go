package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driving"
	"github.com/dhluong90/presale-assistance-backend/internal/logger"
)

// Ensure KnowledgeIndex implements the interface.
var _ driving.KnowledgeService = (*KnowledgeIndex)(nil)

// KnowledgeIndex owns the document collection, its embeddings and the
// similarity search. A RWMutex guards the in-memory map: Search takes
// the read lock, Refresh/EnsureEmbeddings/Load take the write lock, so
// a reader can never observe a document mid-replacement.
type KnowledgeIndex struct {
	source     driven.DocumentSource
	extractors driven.ExtractorRegistry
	embedder   driven.EmbeddingService
	store      driven.IndexStore
	location   string

	mu          sync.RWMutex
	docs        map[string]domain.Document
	lastUpdated time.Time
}

// NewKnowledgeIndex creates an empty knowledge index. The location hint
// is passed through to the source listing (directory, Drive folder id).
func NewKnowledgeIndex(
	source driven.DocumentSource,
	extractors driven.ExtractorRegistry,
	embedder driven.EmbeddingService,
	store driven.IndexStore,
	location string,
) *KnowledgeIndex {
	return &KnowledgeIndex{
		source:     source,
		extractors: extractors,
		embedder:   embedder,
		store:      store,
		location:   location,
		docs:       make(map[string]domain.Document),
	}
}

// Load populates the index from the persisted snapshot. A missing
// snapshot is a normal cold start; a corrupt one is logged and treated
// as no prior state so the system degrades to a full rebuild.
func (k *KnowledgeIndex) Load(ctx context.Context) error {
	snap, err := k.store.Load(ctx)

	k.mu.Lock()
	defer k.mu.Unlock()

	switch {
	case errors.Is(err, domain.ErrNotFound):
		k.docs = make(map[string]domain.Document)
		return nil
	case err != nil:
		logger.Warn("Discarding persisted index: %v", err)
		k.docs = make(map[string]domain.Document)
		return nil
	}

	docs := make(map[string]domain.Document, len(snap.Documents))
	for id, doc := range snap.Documents {
		docs[id] = doc
	}
	k.docs = docs
	k.lastUpdated = snap.LastUpdated
	logger.Info("Loaded %d documents from index", len(docs))
	return nil
}

// IsInitialized reports whether a persisted snapshot exists and the
// in-memory map is non-empty. It says nothing about freshness.
func (k *KnowledgeIndex) IsInitialized(ctx context.Context) bool {
	exists, err := k.store.Exists(ctx)
	if err != nil || !exists {
		return false
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.docs) > 0
}

// Refresh pulls the current source listing, filters it to supported
// MIME types and upserts every file. A document whose content is
// unchanged keeps its embedding; changed content clears it so
// EnsureEmbeddings recomputes. Per-file fetch or extraction failures
// are logged and skipped; they never abort the refresh. Documents that
// disappeared from the source are kept (append-only index).
func (k *KnowledgeIndex) Refresh(ctx context.Context) error {
	files, err := k.source.ListFiles(ctx, k.location)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	var supported []domain.FileInfo
	for _, f := range files {
		if k.extractors.Supports(f.MIMEType) {
			supported = append(supported, f)
			continue
		}
		logger.Debug("Skipping %s: unsupported MIME type %s", f.Name, f.MIMEType)
	}

	logger.Info("Refreshing index from %s: %d supported of %d listed",
		k.source.Kind(), len(supported), len(files))

	for _, f := range supported {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := k.refreshOne(ctx, f); err != nil {
			logger.Warn("Skipping %s: %v", f.Name, err)
		}
	}
	return nil
}

// refreshOne fetches, extracts and upserts a single file.
func (k *KnowledgeIndex) refreshOne(ctx context.Context, f domain.FileInfo) error {
	name, raw, err := k.source.GetFile(ctx, f.ID)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	content, err := k.extractors.Extract(ctx, f.MIMEType, raw)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	metadata := map[string]any{
		"title":    name,
		"source":   k.source.Kind(),
		"created":  f.CreatedTime.UTC().Format(time.RFC3339),
		"modified": f.ModifiedTime.UTC().Format(time.RFC3339),
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	doc := domain.Document{
		ID:       f.ID,
		Content:  content,
		Metadata: metadata,
	}
	if existing, ok := k.docs[f.ID]; ok && existing.Content == content {
		// Unchanged content keeps its embedding.
		doc.Embedding = existing.Embedding
	}
	k.docs[f.ID] = doc
	return nil
}

// embedBatchSize caps how many documents go into one batch request.
const embedBatchSize = 16

// EnsureEmbeddings computes embeddings for every document without one,
// in batches of embedBatchSize. Idempotent: rerunning after a partial
// failure only touches what is still missing. An embedding whose length
// no longer matches the backend's dimensionality is invalidated and
// recomputed, so the index never mixes vectors from two models. Backend
// failures propagate; batches completed before the failure keep their
// vectors.
func (k *KnowledgeIndex) EnsureEmbeddings(ctx context.Context) error {
	dims := k.embedder.Dimensions()

	k.mu.Lock()
	var missing []string
	for id, doc := range k.docs {
		if doc.Embedding != nil && dims > 0 && len(doc.Embedding) != dims {
			logger.Warn("Invalidating embedding for %s: dimension %d, backend expects %d",
				id, len(doc.Embedding), dims)
			doc.Embedding = nil
			k.docs[id] = doc
		}
		if doc.Embedding == nil {
			missing = append(missing, id)
		}
	}
	k.mu.Unlock()

	if len(missing) == 0 {
		logger.Debug("All %d documents already embedded", k.DocumentCount())
		return nil
	}
	sort.Strings(missing)

	logger.Info("Computing embeddings for %d documents with model %s",
		len(missing), k.embedder.ModelName())

	for start := 0; start < len(missing); start += embedBatchSize {
		end := min(start+embedBatchSize, len(missing))

		ids := make([]string, 0, end-start)
		texts := make([]string, 0, end-start)
		k.mu.RLock()
		for _, id := range missing[start:end] {
			doc, ok := k.docs[id]
			if !ok || doc.Embedding != nil {
				continue
			}
			ids = append(ids, id)
			texts = append(texts, doc.Content)
		}
		k.mu.RUnlock()
		if len(ids) == 0 {
			continue
		}

		embeddings, err := k.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch of %d documents: %w", len(texts), err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("%w: got %d embeddings for %d documents",
				domain.ErrBackendUnavailable, len(embeddings), len(texts))
		}

		k.mu.Lock()
		for i, id := range ids {
			if current, ok := k.docs[id]; ok && current.Content == texts[i] {
				current.Embedding = embeddings[i]
				k.docs[id] = current
			}
		}
		k.mu.Unlock()
	}
	return nil
}

// Persist atomically writes the full document mapping to storage and
// records the persist time as the index's last update.
func (k *KnowledgeIndex) Persist(ctx context.Context) error {
	k.mu.RLock()
	snap := &driven.IndexSnapshot{
		LastUpdated: time.Now().UTC(),
		Documents:   make(map[string]domain.Document, len(k.docs)),
	}
	for id, doc := range k.docs {
		snap.Documents[id] = doc.Clone()
	}
	k.mu.RUnlock()

	if err := k.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	k.mu.Lock()
	k.lastUpdated = snap.LastUpdated
	k.mu.Unlock()

	logger.Info("Persisted %d documents", len(snap.Documents))
	return nil
}

// Search ranks every embedded document by cosine similarity to the
// query embedding and returns the topK best. Ties break by ascending
// document id for determinism. Documents without an embedding are not
// candidates; an index with none returns an empty result, not an error.
func (k *KnowledgeIndex) Search(
	_ context.Context, queryEmbedding []float32, topK int,
) ([]domain.ScoredDocument, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidInput, topK)
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	scored := make([]domain.ScoredDocument, 0, len(k.docs))
	for _, doc := range k.docs {
		if !doc.HasEmbedding() {
			continue
		}
		scored = append(scored, domain.ScoredDocument{
			Document: doc.Clone(),
			Score:    cosineSimilarity(queryEmbedding, doc.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Document.ID < scored[j].Document.ID
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// DocumentCount returns the number of documents in the index.
func (k *KnowledgeIndex) DocumentCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.docs)
}

// EmbeddedCount returns the number of documents with an embedding.
func (k *KnowledgeIndex) EmbeddedCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	n := 0
	for _, doc := range k.docs {
		if doc.HasEmbedding() {
			n++
		}
	}
	return n
}

// LastUpdated returns the time of the last successful persist, or the
// persisted snapshot's timestamp after a Load.
func (k *KnowledgeIndex) LastUpdated() time.Time {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.lastUpdated
}

// cosineSimilarity returns dot(a,b) / (|a|*|b|), accumulated in float64.
// Defined as 0 when either norm is 0 or the lengths differ, so the
// result is always finite and never a division by zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return sim
}
