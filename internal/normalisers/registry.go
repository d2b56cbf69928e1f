package normalisers

import (
	"context"
	"fmt"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
	"github.com/dhluong90/presale-assistance-backend/internal/normalisers/plaintext"
	"github.com/dhluong90/presale-assistance-backend/internal/normalisers/pptx"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry routes MIME types to text extractors. Registration order is
// the lookup order; the first extractor claiming a MIME type wins.
type Registry struct {
	byMIME     map[string]driven.TextExtractor
	extractors []driven.TextExtractor
}

// NewRegistry creates a registry with the given extractors.
func NewRegistry(extractors ...driven.TextExtractor) *Registry {
	r := &Registry{
		byMIME:     make(map[string]driven.TextExtractor),
		extractors: extractors,
	}
	for _, e := range extractors {
		for _, mime := range e.SupportedMIMETypes() {
			if _, ok := r.byMIME[mime]; !ok {
				r.byMIME[mime] = e
			}
		}
	}
	return r
}

// DefaultRegistry wires the built-in extractors.
func DefaultRegistry() *Registry {
	return NewRegistry(
		pptx.New(),
		plaintext.New(),
	)
}

// Supports reports whether any extractor handles the MIME type.
func (r *Registry) Supports(mimeType string) bool {
	_, ok := r.byMIME[mimeType]
	return ok
}

// Extract routes the raw bytes to the extractor for the MIME type.
func (r *Registry) Extract(ctx context.Context, mimeType string, raw []byte) (string, error) {
	e, ok := r.byMIME[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, mimeType)
	}
	return e.Extract(ctx, raw)
}
