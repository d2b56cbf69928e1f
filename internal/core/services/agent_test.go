package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
)

type agentFixture struct {
	source    *mockSource
	embedder  *mockEmbedder
	store     *memoryIndexStore
	generator *mockGenerator
	index     *KnowledgeIndex
	agent     *Agent
}

func newAgentFixture(opts ...AgentOption) *agentFixture {
	f := &agentFixture{
		source: &mockSource{
			files: []domain.FileInfo{
				textFile("doc-a", "a.txt"),
				textFile("doc-b", "b.txt"),
			},
			contents: map[string][]byte{
				"doc-a": []byte("alpha"),
				"doc-b": []byte("beta"),
			},
		},
		embedder:  &mockEmbedder{},
		store:     &memoryIndexStore{},
		generator: &mockGenerator{},
	}
	f.index = newTestIndex(f.source, f.embedder, f.store)
	f.agent = NewAgent(f.index, f.embedder, f.generator, opts...)
	return f
}

func TestAgent_EnsureReady_ColdStartBuildsIndex(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()

	assert.Equal(t, domain.ReadinessNotReady, f.agent.Status(ctx).State)

	require.NoError(t, f.agent.EnsureReady(ctx))

	status := f.agent.Status(ctx)
	assert.Equal(t, domain.ReadinessReady, status.State)
	assert.Equal(t, 2, status.DocumentCount)
	assert.Equal(t, 2, status.EmbeddedCount)
	assert.Equal(t, "mock-gen", status.Model)
	assert.False(t, status.LastSync.IsZero())
	assert.Equal(t, 1, f.store.saveCalls)

	// Already ready: no second pass over the source.
	require.NoError(t, f.agent.EnsureReady(ctx))
	assert.Equal(t, 1, f.source.listCalls)
	assert.Equal(t, 1, f.store.saveCalls)
}

func TestAgent_EnsureReady_SkipsRebuildWithPersistedIndex(t *testing.T) {
	f := newAgentFixture()
	seedStore(f.store,
		domain.Document{ID: "doc-a", Content: "alpha", Embedding: []float32{1, 0, 0, 0}},
	)
	ctx := context.Background()

	require.NoError(t, f.agent.EnsureReady(ctx))

	assert.Equal(t, domain.ReadinessReady, f.agent.Status(ctx).State)
	assert.Equal(t, 0, f.source.listCalls, "persisted index must not trigger a source scan")
	assert.Equal(t, 0, f.embedder.calls())
}

func TestAgent_EnsureReady_FailureIsRetryable(t *testing.T) {
	f := newAgentFixture()
	f.embedder.pingErr = domain.ErrBackendUnavailable
	ctx := context.Background()

	err := f.agent.EnsureReady(ctx)
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Equal(t, domain.ReadinessNotReady, f.agent.Status(ctx).State)
	assert.Equal(t, 0, f.store.saveCalls)

	// Backend comes back; the same agent initializes cleanly.
	f.embedder.pingErr = nil
	require.NoError(t, f.agent.EnsureReady(ctx))
	assert.Equal(t, domain.ReadinessReady, f.agent.Status(ctx).State)
	assert.Equal(t, 1, f.store.saveCalls)
}

func TestAgent_EnsureReady_Concurrent(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.agent.EnsureReady(ctx))
		}()
	}
	wg.Wait()

	// Exactly one initialization pass ran.
	assert.Equal(t, 1, f.source.listCalls)
	assert.Equal(t, 1, f.store.saveCalls)
	assert.Equal(t, domain.ReadinessReady, f.agent.Status(ctx).State)
}

func TestAgent_Status_ReportsInitializingWithoutBlocking(t *testing.T) {
	f := newAgentFixture()
	f.embedder.pingStarted = make(chan struct{}, 1)
	f.embedder.pingRelease = make(chan struct{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- f.agent.EnsureReady(ctx)
	}()

	select {
	case <-f.embedder.pingStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("initialization never reached the embedding backend")
	}

	// The pass is parked inside Ping; Status must answer promptly and
	// report the in-flight state.
	statusC := make(chan domain.Status, 1)
	go func() {
		statusC <- f.agent.Status(ctx)
	}()
	select {
	case status := <-statusC:
		assert.Equal(t, domain.ReadinessInitializing, status.State)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Status blocked behind the in-flight initialization")
	}

	close(f.embedder.pingRelease)
	require.NoError(t, <-done)
	assert.Equal(t, domain.ReadinessReady, f.agent.Status(ctx).State)
}

func TestAgent_Answer_EmptyPrompt(t *testing.T) {
	f := newAgentFixture()

	_, err := f.agent.Answer(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAgent_Answer_NotReadyAndInitFails(t *testing.T) {
	f := newAgentFixture()
	f.embedder.pingErr = domain.ErrBackendUnavailable

	_, err := f.agent.Answer(context.Background(), "what do we sell?", nil)
	assert.ErrorIs(t, err, domain.ErrAgentNotReady)
}

func TestAgent_Answer_InitializesOnDemand(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()

	answer, err := f.agent.Answer(ctx, "alpha", nil)
	require.NoError(t, err)
	require.NotNil(t, answer)
	assert.Equal(t, domain.ReadinessReady, f.agent.Status(ctx).State)
}

func TestAgent_Answer_AssemblesContext(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()
	require.NoError(t, f.agent.EnsureReady(ctx))

	extra := map[string]string{
		"region":   "EMEA",
		"customer": "Initech",
	}

	// The prompt matches doc-a's content exactly, so its mock embedding
	// is identical and doc-a ranks first.
	answer, err := f.agent.Answer(ctx, "alpha", extra)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"Based on the following company information:",
		"[Document 1] a.txt",
		"alpha",
		"[Document 2] b.txt",
		"beta",
		"Additional context:",
		"customer: Initech",
		"region: EMEA",
		"",
		"User prompt:",
		"alpha",
	}, "\n")
	assert.Equal(t, expected, f.generator.lastContext)
	assert.Equal(t, DefaultGenerateOptions, f.generator.lastOpts)

	assert.Equal(t, "generated answer", answer.Response)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "a.txt", answer.Sources[0]["title"])
	assert.Equal(t, "b.txt", answer.Sources[1]["title"])
	assert.Equal(t, "mock", answer.Sources[0]["source"])

	assert.NotEmpty(t, answer.Metadata.ID)
	assert.Equal(t, "mock-gen", answer.Metadata.Model)
	assert.False(t, answer.Metadata.Timestamp.IsZero())
}

func TestAgent_Answer_NoExtraContext(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()
	require.NoError(t, f.agent.EnsureReady(ctx))

	_, err := f.agent.Answer(ctx, "alpha", nil)
	require.NoError(t, err)

	assert.NotContains(t, f.generator.lastContext, "Additional context:")
	assert.True(t, strings.HasSuffix(f.generator.lastContext, "\nUser prompt:\nalpha"))
}

func TestAgent_Answer_EmptyIndexStillAnswers(t *testing.T) {
	f := newAgentFixture()
	f.source.files = nil
	f.source.contents = nil
	ctx := context.Background()
	require.NoError(t, f.agent.EnsureReady(ctx))

	answer, err := f.agent.Answer(ctx, "anything at all", nil)
	require.NoError(t, err)

	assert.Empty(t, answer.Sources)
	assert.NotContains(t, f.generator.lastContext, "company information")
	assert.True(t, strings.HasSuffix(f.generator.lastContext, "\nUser prompt:\nanything at all"))
}

func TestAgent_Answer_GenerationFailurePropagates(t *testing.T) {
	f := newAgentFixture()
	f.generator.genErr = domain.ErrBackendUnavailable
	ctx := context.Background()
	require.NoError(t, f.agent.EnsureReady(ctx))

	_, err := f.agent.Answer(ctx, "alpha", nil)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	// A generation failure does not demote the agent.
	assert.Equal(t, domain.ReadinessReady, f.agent.Status(ctx).State)
}

func TestAgent_Options(t *testing.T) {
	custom := driven.GenerateOptions{
		Temperature:     0.2,
		TopP:            0.5,
		TopK:            10,
		MaxOutputTokens: 256,
	}
	f := newAgentFixture(WithTopK(1), WithGenerateOptions(custom))
	ctx := context.Background()
	require.NoError(t, f.agent.EnsureReady(ctx))

	answer, err := f.agent.Answer(ctx, "alpha", nil)
	require.NoError(t, err)

	assert.Len(t, answer.Sources, 1)
	assert.Equal(t, custom, f.generator.lastOpts)
}
