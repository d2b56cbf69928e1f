// Package sqlite persists the knowledge index in a SQLite database.
// Embeddings are stored as little-endian float32 blobs; document
// metadata as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS index_meta (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	last_updated TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL,
	embedding BLOB
);
`

// Store is a SQLite-backed index store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at the given path. If path
// is empty the database lives under ~/.presale/data/.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".presale", "data", "knowledge_index.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the full snapshot. A database without a meta row maps to
// ErrNotFound; undecodable rows map to ErrIndexCorrupt.
func (s *Store) Load(ctx context.Context) (*driven.IndexSnapshot, error) {
	var lastUpdatedText string
	err := s.db.QueryRowContext(ctx,
		"SELECT last_updated FROM index_meta WHERE id = 1").Scan(&lastUpdatedText)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: index never persisted", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading index meta: %w", err)
	}

	lastUpdated, err := time.Parse(time.RFC3339, lastUpdatedText)
	if err != nil {
		return nil, fmt.Errorf("%w: bad last_updated: %v", domain.ErrIndexCorrupt, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata, embedding FROM documents")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	snap := &driven.IndexSnapshot{
		LastUpdated: lastUpdated,
		Documents:   make(map[string]domain.Document),
	}
	for rows.Next() {
		var (
			doc           domain.Document
			metadataJSON  string
			embeddingBlob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("%w: bad metadata for %s: %v", domain.ErrIndexCorrupt, doc.ID, err)
		}
		doc.Embedding = bytesToFloat32Slice(embeddingBlob)
		snap.Documents[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return snap, nil
}

// Save replaces the stored snapshot in a single transaction, so a
// reader never observes a half-written index.
func (s *Store) Save(ctx context.Context, snap *driven.IndexSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, content, metadata, embedding)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for id, doc := range snap.Documents {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, doc.Content, string(metadataJSON),
			float32SliceToBytes(doc.Embedding)); err != nil {
			return fmt.Errorf("saving document %s: %w", id, err)
		}
	}

	lastUpdated := snap.LastUpdated.UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, last_updated) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_updated = excluded.last_updated
	`, lastUpdated); err != nil {
		return fmt.Errorf("saving index meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Exists reports whether a snapshot was ever persisted.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM index_meta WHERE id = 1").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking index meta: %w", err)
	}
	return count > 0, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
