package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrSourceUnavailable indicates the document source cannot be reached.
	ErrSourceUnavailable = errors.New("document source unavailable")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat indicates no extractor handles the document's
	// MIME type. Per-document and non-fatal: the refresh skips the file.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCorruptDocument indicates the document bytes could not be parsed.
	// Per-document and non-fatal: the refresh skips the file.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrBackendUnavailable indicates the embedding or generation backend
	// failed. Systemic: the current operation aborts.
	ErrBackendUnavailable = errors.New("model backend unavailable")

	// ErrRateLimited indicates the backend rejected the call for quota
	// reasons. Systemic: the current operation aborts.
	ErrRateLimited = errors.New("rate limited")

	// ErrIndexCorrupt indicates the persisted index could not be decoded.
	// The index degrades to an empty state and rebuilds from the source.
	ErrIndexCorrupt = errors.New("persisted index corrupt")

	// ErrAgentNotReady indicates initialization has not completed.
	// User-visible and retryable.
	ErrAgentNotReady = errors.New("agent not ready")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)
