package filesystem

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
	"github.com/dhluong90/presale-assistance-backend/internal/logger"
)

// Ensure LocalSource implements the interfaces.
var (
	_ driven.DocumentSource = (*LocalSource)(nil)
	_ driven.WatchingSource = (*LocalSource)(nil)
)

// LocalSource serves documents from a local directory. File IDs are
// absolute paths, so they stay stable across listings.
type LocalSource struct {
	root string
}

// New creates a source rooted at the given directory.
func New(root string) *LocalSource {
	return &LocalSource{root: root}
}

// Kind returns the source type identifier.
func (s *LocalSource) Kind() string {
	return "filesystem"
}

// ListFiles returns the regular files directly under the directory.
// An empty location means the configured root. Hidden files are
// skipped.
func (s *LocalSource) ListFiles(_ context.Context, location string) ([]domain.FileInfo, error) {
	dir := location
	if dir == "" {
		dir = s.root
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrSourceUnavailable, dir, err)
	}

	var files []domain.FileInfo
	for _, entry := range entries {
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logger.Warn("Skipping %s: %v", entry.Name(), err)
			continue
		}

		path, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", entry.Name(), err)
		}

		files = append(files, domain.FileInfo{
			ID:       path,
			Name:     entry.Name(),
			MIMEType: detectMIMEType(entry.Name()),
			// The filesystem has no creation time; use the last
			// modification for both.
			CreatedTime:  info.ModTime(),
			ModifiedTime: info.ModTime(),
		})
	}
	return files, nil
}

// GetFile reads one file by its absolute path.
func (s *LocalSource) GetFile(_ context.Context, id string) (string, []byte, error) {
	content, err := os.ReadFile(id)
	if os.IsNotExist(err) {
		return "", nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: read %s: %v", domain.ErrSourceUnavailable, id, err)
	}
	return filepath.Base(id), content, nil
}

// Watch emits a change event for every create, write or remove under
// the root. The channel closes when the context is cancelled.
func (s *LocalSource) Watch(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("%w: watch %s: %v", domain.ErrSourceUnavailable, s.root, err)
	}

	events := make(chan domain.ChangeEvent)
	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				change, relevant := translateEvent(ev)
				if !relevant {
					continue
				}
				select {
				case events <- change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)
			}
		}
	}()
	return events, nil
}

// Close releases resources. Watch manages its own watcher lifetime.
func (s *LocalSource) Close() error {
	return nil
}

// translateEvent maps an fsnotify event to a change event.
func translateEvent(ev fsnotify.Event) (domain.ChangeEvent, bool) {
	if isHidden(filepath.Base(ev.Name)) {
		return domain.ChangeEvent{}, false
	}

	var changeType domain.ChangeType
	switch {
	case ev.Op.Has(fsnotify.Create):
		changeType = domain.ChangeCreated
	case ev.Op.Has(fsnotify.Write):
		changeType = domain.ChangeUpdated
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		changeType = domain.ChangeDeleted
	default:
		return domain.ChangeEvent{}, false
	}

	path, err := filepath.Abs(ev.Name)
	if err != nil {
		path = ev.Name
	}
	return domain.ChangeEvent{FileID: path, Type: changeType}, true
}

// mimeFallbacks covers extensions the platform MIME registry often
// lacks.
var mimeFallbacks = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".ppt":      "application/vnd.ms-powerpoint",
}

// detectMIMEType maps a filename to a MIME type by extension. Files
// without an extension are assumed to be plain text.
func detectMIMEType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "text/plain"
	}
	if mimeType, ok := mimeFallbacks[ext]; ok {
		return mimeType
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		// Strip parameters like charset.
		if base, _, found := strings.Cut(mimeType, ";"); found {
			return strings.TrimSpace(base)
		}
		return mimeType
	}
	return "application/octet-stream"
}

// isHidden reports whether the file name starts with a dot.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
