package driving

import (
	"context"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
)

// AgentService is the retrieval-augmented assistant exposed to the
// outer layers.
type AgentService interface {
	// EnsureReady drives the index through load / refresh / embed /
	// persist exactly once. Safe to call from any number of callers:
	// concurrent callers share the in-flight initialization. Idempotent
	// once Ready.
	EnsureReady(ctx context.Context) error

	// Answer embeds the prompt, retrieves the most relevant documents,
	// and generates a grounded response. The extra map is caller
	// context appended to the prompt verbatim.
	// Fails with domain.ErrAgentNotReady when initialization has not
	// succeeded.
	Answer(ctx context.Context, prompt string, extra map[string]string) (*domain.Answer, error)

	// Status reports readiness and index statistics. Never fails.
	Status(ctx context.Context) domain.Status
}
