package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driving"
	"github.com/dhluong90/presale-assistance-backend/internal/logger"
)

// Ensure Agent implements the interface.
var _ driving.AgentService = (*Agent)(nil)

// DefaultTopK is the number of documents retrieved per answer.
const DefaultTopK = 3

// DefaultGenerateOptions is the generation configuration used when the
// caller does not override it.
var DefaultGenerateOptions = driven.GenerateOptions{
	Temperature:     0.7,
	TopP:            0.8,
	TopK:            40,
	MaxOutputTokens: 1024,
}

// Agent coordinates the knowledge index and the generation backend.
// Initialization is an explicit state machine rather than a background
// task: initMu is held for the whole pass, so concurrent callers wait
// for the in-flight initialization instead of starting a second one.
// The readiness state lives behind its own mutex that is never held
// across I/O, so Status observes Initializing while a pass runs.
type Agent struct {
	index     driving.KnowledgeService
	embedder  driven.EmbeddingService
	generator driven.GenerationService
	topK      int
	genOpts   driven.GenerateOptions

	initMu sync.Mutex

	stateMu sync.Mutex
	state   domain.Readiness
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithTopK overrides the retrieval depth.
func WithTopK(k int) AgentOption {
	return func(a *Agent) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithGenerateOptions overrides the generation configuration.
func WithGenerateOptions(opts driven.GenerateOptions) AgentOption {
	return func(a *Agent) {
		a.genOpts = opts
	}
}

// NewAgent creates an agent in the NotReady state.
func NewAgent(
	index driving.KnowledgeService,
	embedder driven.EmbeddingService,
	generator driven.GenerationService,
	opts ...AgentOption,
) *Agent {
	a := &Agent{
		index:     index,
		embedder:  embedder,
		generator: generator,
		topK:      DefaultTopK,
		genOpts:   DefaultGenerateOptions,
		state:     domain.ReadinessNotReady,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EnsureReady drives the index to a usable state exactly once. On
// failure the state returns to NotReady and the call may be retried;
// whatever partial state the index loaded stays in memory.
func (a *Agent) EnsureReady(ctx context.Context) error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	if a.currentState() == domain.ReadinessReady {
		return nil
	}

	a.setState(domain.ReadinessInitializing)
	if err := a.initialize(ctx); err != nil {
		a.setState(domain.ReadinessNotReady)
		logger.Error("Agent initialization failed: %v", err)
		return fmt.Errorf("initialize agent: %w", err)
	}

	a.setState(domain.ReadinessReady)
	logger.Info("Agent ready: %d documents indexed", a.index.DocumentCount())
	return nil
}

// initialize loads the persisted index and, when nothing usable exists,
// rebuilds it from the source. Caller holds initMu.
func (a *Agent) initialize(ctx context.Context) error {
	if err := a.index.Load(ctx); err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	if a.index.IsInitialized(ctx) {
		logger.Debug("Index already initialized, skipping rebuild")
		return nil
	}

	// Fail fast before fetching every document.
	if err := a.embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embedding backend unreachable: %w", err)
	}

	if err := a.index.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh index: %w", err)
	}
	if err := a.index.EnsureEmbeddings(ctx); err != nil {
		return fmt.Errorf("ensure embeddings: %w", err)
	}
	if err := a.index.Persist(ctx); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

// Answer embeds the prompt, retrieves the topK most similar documents,
// assembles the grounded context and generates a response. When the
// agent is not ready it attempts one synchronous initialization; if
// that fails the caller gets domain.ErrAgentNotReady, distinct from a
// backend failure during the answer itself.
func (a *Agent) Answer(
	ctx context.Context, prompt string, extra map[string]string,
) (*domain.Answer, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", domain.ErrInvalidInput)
	}

	if !a.ready() {
		if err := a.EnsureReady(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrAgentNotReady, err)
		}
	}

	queryEmbedding, err := a.embedder.Embed(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("embed prompt: %w", err)
	}

	results, err := a.index.Search(ctx, queryEmbedding, a.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	logger.Debug("Retrieved %d documents for prompt", len(results))

	contextText := buildPromptContext(prompt, results, extra)

	response, err := a.generator.Generate(ctx, contextText, a.genOpts)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}

	sources := make([]map[string]any, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.Document.Metadata)
	}

	return &domain.Answer{
		Response: response,
		Sources:  sources,
		Metadata: domain.AnswerMetadata{
			ID:        uuid.New().String(),
			Model:     a.generator.ModelName(),
			Timestamp: time.Now().UTC(),
		},
	}, nil
}

// Status reports readiness and index statistics. It never fails and
// never blocks on an initialization in flight: a caller that only wants
// observability gets whatever is known, including Initializing while a
// pass runs.
func (a *Agent) Status(_ context.Context) domain.Status {
	return domain.Status{
		State:         a.currentState(),
		LastSync:      a.index.LastUpdated(),
		DocumentCount: a.index.DocumentCount(),
		EmbeddedCount: a.index.EmbeddedCount(),
		Model:         a.generator.ModelName(),
	}
}

// ready reports whether the agent reached the Ready state.
func (a *Agent) ready() bool {
	return a.currentState() == domain.ReadinessReady
}

func (a *Agent) setState(s domain.Readiness) {
	a.stateMu.Lock()
	a.state = s
	a.stateMu.Unlock()
}

func (a *Agent) currentState() domain.Readiness {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state
}

// buildPromptContext assembles the generation context: document
// excerpts in rank order tagged with their titles, then caller-supplied
// key/value context in sorted key order, then the prompt verbatim.
func buildPromptContext(
	prompt string, docs []domain.ScoredDocument, extra map[string]string,
) string {
	var parts []string

	if len(docs) > 0 {
		parts = append(parts, "Based on the following company information:")
		for i, d := range docs {
			parts = append(parts, fmt.Sprintf("[Document %d] %s", i+1, d.Document.Title()))
			parts = append(parts, d.Document.Content)
		}
	}

	if len(extra) > 0 {
		parts = append(parts, "Additional context:")
		keys := make([]string, 0, len(extra))
		for key := range extra {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			parts = append(parts, key+": "+extra[key])
		}
	}

	parts = append(parts, "", "User prompt:", prompt)
	return strings.Join(parts, "\n")
}
