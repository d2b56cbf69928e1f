package domain

import "time"

// Readiness is the agent lifecycle state. The only transitions are
// NotReady -> Initializing -> Ready, with Initializing -> NotReady on a
// failed initialization. Once Ready the agent stays Ready for the
// process lifetime.
type Readiness string

const (
	// ReadinessNotReady means initialization has not started or failed.
	ReadinessNotReady Readiness = "not_ready"
	// ReadinessInitializing means an initialization pass is in flight.
	ReadinessInitializing Readiness = "initializing"
	// ReadinessReady means the index is loaded and queries can be served.
	ReadinessReady Readiness = "ready"
)

// Answer is the result of one retrieval-augmented generation request.
type Answer struct {
	// Response is the generated text.
	Response string

	// Sources holds the metadata of the documents used to ground the
	// response, in rank order.
	Sources []map[string]any

	// Metadata describes how the answer was produced.
	Metadata AnswerMetadata
}

// AnswerMetadata identifies the generation that produced an answer.
type AnswerMetadata struct {
	// ID uniquely identifies this answer.
	ID string

	// Model is the generation model identifier.
	Model string

	// Timestamp is when the answer was generated.
	Timestamp time.Time
}

// Status is an observability snapshot of the agent. Producing it never
// fails; degraded internals surface as zero values.
type Status struct {
	// State is the current readiness.
	State Readiness

	// LastSync is the last successful index persist, zero if never.
	LastSync time.Time

	// DocumentCount is the number of documents held by the index.
	DocumentCount int

	// EmbeddedCount is the number of documents with a computed embedding.
	EmbeddedCount int

	// Model is the generation model identifier in use.
	Model string
}

// ScoredDocument pairs a document copy with its similarity to a query.
type ScoredDocument struct {
	// Document is a read-only copy of the matched document.
	Document Document

	// Score is the cosine similarity to the query embedding.
	Score float64
}
