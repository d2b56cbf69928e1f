package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
	}
}

// Extract returns the raw bytes as text. Bytes that are not valid
// UTF-8 are rejected rather than passed through to the embedding
// backend.
func (e *Extractor) Extract(_ context.Context, raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", domain.ErrCorruptDocument
	}
	return strings.TrimSpace(string(raw)), nil
}
