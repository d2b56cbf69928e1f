package driven

import (
	"context"
	"time"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
)

// IndexSnapshot is the persisted form of the knowledge index: every
// document plus the time of the last successful persist.
type IndexSnapshot struct {
	// LastUpdated is when the snapshot was persisted.
	LastUpdated time.Time

	// Documents maps document id to document.
	Documents map[string]domain.Document
}

// IndexStore persists index snapshots. A Save must be atomic with
// respect to process crash: after a crash either the whole prior
// snapshot or the whole new one is observable, never a torn write.
type IndexStore interface {
	// Load reads the persisted snapshot.
	// Fails with domain.ErrNotFound when no snapshot exists and
	// domain.ErrIndexCorrupt when one exists but cannot be decoded.
	Load(ctx context.Context) (*IndexSnapshot, error)

	// Save atomically replaces the persisted snapshot.
	Save(ctx context.Context, snap *IndexSnapshot) error

	// Exists reports whether a persisted snapshot is present.
	Exists(ctx context.Context) (bool, error)

	// Close releases resources.
	Close() error
}
