package domain

import "time"

// Document is one extracted slide deck held by the knowledge index.
// The index is the sole owner of Document values; anything handed to
// callers is a copy.
type Document struct {
	// ID is the source's stable identifier for the file. It survives
	// re-ingestion of the same file.
	ID string

	// Content is the extracted plain text.
	Content string

	// Metadata holds title, source kind and source timestamps.
	// Values are scalars so the persisted index round-trips exactly.
	Metadata map[string]any

	// Embedding is the semantic vector for Content. Nil means "not yet
	// computed", which is distinct from a zero vector.
	Embedding []float32
}

// Title returns the human-readable title from metadata, falling back to
// the document id.
func (d Document) Title() string {
	if v, ok := d.Metadata["title"].(string); ok && v != "" {
		return v
	}
	return d.ID
}

// HasEmbedding reports whether the embedding has been computed.
func (d Document) HasEmbedding() bool {
	return d.Embedding != nil
}

// Clone returns a deep copy so callers cannot mutate index-owned state.
func (d Document) Clone() Document {
	out := d
	if d.Metadata != nil {
		out.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	if d.Embedding != nil {
		out.Embedding = make([]float32, len(d.Embedding))
		copy(out.Embedding, d.Embedding)
	}
	return out
}

// FileInfo describes one file as reported by a document source listing.
type FileInfo struct {
	// ID is the stable identifier used to fetch the file.
	ID string

	// Name is the display file name.
	Name string

	// MIMEType is the content type the source will deliver for this file.
	MIMEType string

	// CreatedTime and ModifiedTime come from the source's own metadata.
	CreatedTime  time.Time
	ModifiedTime time.Time
}

// ChangeType classifies a change reported by a watching source.
type ChangeType string

const (
	// ChangeCreated indicates a new file appeared at the source.
	ChangeCreated ChangeType = "created"
	// ChangeUpdated indicates an existing file's content changed.
	ChangeUpdated ChangeType = "updated"
	// ChangeDeleted indicates a file disappeared from the source.
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent is a single change notification from a watching source.
type ChangeEvent struct {
	// FileID identifies the affected file.
	FileID string

	// Type is the kind of change.
	Type ChangeType
}
