package driven

import "context"

// GenerationService produces text from a retrieval-augmented context.
//
// Implementations may include:
//   - Gemini (gemini-1.5-pro, gemini-1.5-flash)
//   - OpenAI-compatible endpoints
type GenerationService interface {
	// Generate produces text from the assembled context.
	// Fails with domain.ErrBackendUnavailable or domain.ErrRateLimited.
	Generate(ctx context.Context, contextText string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// Temperature controls sampling randomness.
	Temperature float64

	// TopP is the nucleus sampling cutoff.
	TopP float64

	// TopK caps the number of candidate tokens per step.
	TopK int

	// MaxOutputTokens caps the response length.
	MaxOutputTokens int
}
