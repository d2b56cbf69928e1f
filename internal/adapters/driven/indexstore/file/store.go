// Package file persists the knowledge index as a single JSON document.
// Writes go through a temp file and rename, so a crash mid-write never
// leaves a truncated index behind.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// DefaultFileName is the index file name used when the caller passes a
// directory.
const DefaultFileName = "knowledge_index.json"

// Store reads and writes the index file.
type Store struct {
	path string
}

// NewStore creates a store for the given path. If path is empty the
// index lives under ~/.presale/data/.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".presale", "data", DefaultFileName)
	}
	return &Store{path: path}, nil
}

// Path returns the index file path.
func (s *Store) Path() string {
	return s.path
}

// persistedIndex is the on-disk layout.
type persistedIndex struct {
	LastUpdated string                       `json:"lastUpdated"`
	Documents   map[string]persistedDocument `json:"documents"`
}

type persistedDocument struct {
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// Load reads the index file. A missing file maps to ErrNotFound; a
// file that cannot be decoded maps to ErrIndexCorrupt so the caller
// can decide to rebuild.
func (s *Store) Load(_ context.Context) (*driven.IndexSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}

	var stored persistedIndex
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}

	snap := &driven.IndexSnapshot{
		Documents: make(map[string]domain.Document, len(stored.Documents)),
	}
	if stored.LastUpdated != "" {
		lastUpdated, err := time.Parse(time.RFC3339, stored.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("%w: bad lastUpdated: %v", domain.ErrIndexCorrupt, err)
		}
		snap.LastUpdated = lastUpdated
	}

	for id, doc := range stored.Documents {
		snap.Documents[id] = domain.Document{
			ID:        id,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
		}
	}
	return snap, nil
}

// Save writes the snapshot atomically: encode to a temp file in the
// same directory, then rename over the target.
func (s *Store) Save(_ context.Context, snap *driven.IndexSnapshot) error {
	stored := persistedIndex{
		LastUpdated: snap.LastUpdated.UTC().Format(time.RFC3339),
		Documents:   make(map[string]persistedDocument, len(snap.Documents)),
	}
	for id, doc := range snap.Documents {
		stored.Documents[id] = persistedDocument{
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
		}
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, DefaultFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}

// Exists reports whether an index file is present.
func (s *Store) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat index file: %w", err)
	}
	return true, nil
}

// Close releases resources. The file store holds none.
func (s *Store) Close() error {
	return nil
}
