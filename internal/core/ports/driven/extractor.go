package driven

import "context"

// TextExtractor converts a raw document blob into extracted plain text.
// Each extractor handles specific MIME types (PPTX, plain text).
type TextExtractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract returns the plain text content of the document.
	// Fails with domain.ErrCorruptDocument when the bytes cannot be
	// parsed as the claimed format.
	Extract(ctx context.Context, raw []byte) (string, error)
}

// ExtractorRegistry routes a document to the extractor for its MIME type.
type ExtractorRegistry interface {
	// Supports reports whether any registered extractor handles the
	// MIME type. The refresh uses this to filter source listings.
	Supports(mimeType string) bool

	// Extract runs the extractor registered for the MIME type.
	// Fails with domain.ErrUnsupportedFormat when none is registered.
	Extract(ctx context.Context, mimeType string, raw []byte) (string, error)
}
