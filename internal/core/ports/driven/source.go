package driven

import (
	"context"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
)

// DocumentSource enumerates and fetches raw documents from external
// storage. Implementations exist for the local filesystem and Google
// Drive; the core never knows which one it is talking to.
type DocumentSource interface {
	// Kind returns the source type identifier ("filesystem", "gdrive").
	Kind() string

	// ListFiles returns metadata for the files at the given location.
	// The location hint is source-specific: a directory for the
	// filesystem, a folder id for Drive. An empty hint means the
	// source's configured default location.
	// Fails with domain.ErrSourceUnavailable on transport errors.
	ListFiles(ctx context.Context, location string) ([]domain.FileInfo, error)

	// GetFile fetches the raw bytes of a file by its stable id.
	// Fails with domain.ErrNotFound or domain.ErrSourceUnavailable.
	GetFile(ctx context.Context, id string) (name string, content []byte, err error)

	// Close releases resources.
	Close() error
}

// WatchingSource is implemented by sources that can push change events.
// Optional: callers type-assert for it.
type WatchingSource interface {
	// Watch emits change events until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.ChangeEvent, error)
}
