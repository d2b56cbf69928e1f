package services

import (
	"context"
	"sync"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockSource implements driven.DocumentSource for testing.
type mockSource struct {
	files    []domain.FileInfo
	contents map[string][]byte
	getErrs  map[string]error
	listErr  error

	listCalls int
	getCalls  int
}

func (m *mockSource) Kind() string {
	return "mock"
}

func (m *mockSource) ListFiles(_ context.Context, _ string) ([]domain.FileInfo, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.files, nil
}

func (m *mockSource) GetFile(_ context.Context, id string) (string, []byte, error) {
	m.getCalls++
	if err, ok := m.getErrs[id]; ok {
		return "", nil, err
	}
	content, ok := m.contents[id]
	if !ok {
		return "", nil, domain.ErrNotFound
	}
	for _, f := range m.files {
		if f.ID == id {
			return f.Name, content, nil
		}
	}
	return id, content, nil
}

func (m *mockSource) Close() error {
	return nil
}

// mockExtractors implements driven.ExtractorRegistry for testing.
// It supports text/plain and returns the raw bytes as the content.
type mockExtractors struct {
	extractErr error
}

func (m *mockExtractors) Supports(mimeType string) bool {
	return mimeType == "text/plain"
}

func (m *mockExtractors) Extract(_ context.Context, mimeType string, raw []byte) (string, error) {
	if mimeType != "text/plain" {
		return "", domain.ErrUnsupportedFormat
	}
	if m.extractErr != nil {
		return "", m.extractErr
	}
	return string(raw), nil
}

// mockEmbedder implements driven.EmbeddingService for testing.
// Embeddings are derived deterministically from the text so tests can
// verify that identical content yields identical vectors.
type mockEmbedder struct {
	mu         sync.Mutex
	dims       int
	embedCalls int
	embedErrs  map[string]error // content -> error
	embedErr   error
	pingErr    error

	// When set, Ping signals pingStarted and then blocks until
	// pingRelease is closed, so tests can hold initialization open.
	pingStarted chan struct{}
	pingRelease chan struct{}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if err, ok := m.embedErrs[text]; ok {
		return nil, err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 4
}

func (m *mockEmbedder) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbedder) Ping(_ context.Context) error {
	if m.pingStarted != nil {
		select {
		case m.pingStarted <- struct{}{}:
		default:
		}
	}
	if m.pingRelease != nil {
		<-m.pingRelease
	}
	return m.pingErr
}

func (m *mockEmbedder) Close() error {
	return nil
}

// vector maps text to a deterministic unit-independent vector.
func (m *mockEmbedder) vector(text string) []float32 {
	dims := m.Dimensions()
	v := make([]float32, dims)
	for i, r := range text {
		v[i%dims] += float32(r % 13)
	}
	if len(text) == 0 {
		v[0] = 1
	}
	return v
}

func (m *mockEmbedder) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls
}

// memoryIndexStore implements driven.IndexStore in memory.
type memoryIndexStore struct {
	mu        sync.Mutex
	snap      *driven.IndexSnapshot
	loadErr   error
	saveErr   error
	saveCalls int
}

func (s *memoryIndexStore) Load(_ context.Context) (*driven.IndexSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.snap == nil {
		return nil, domain.ErrNotFound
	}
	out := &driven.IndexSnapshot{
		LastUpdated: s.snap.LastUpdated,
		Documents:   make(map[string]domain.Document, len(s.snap.Documents)),
	}
	for id, doc := range s.snap.Documents {
		out.Documents[id] = doc.Clone()
	}
	return out, nil
}

func (s *memoryIndexStore) Save(_ context.Context, snap *driven.IndexSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap
	return nil
}

func (s *memoryIndexStore) Exists(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap != nil, nil
}

func (s *memoryIndexStore) Close() error {
	return nil
}

// mockGenerator implements driven.GenerationService for testing.
type mockGenerator struct {
	response    string
	genErr      error
	lastContext string
	lastOpts    driven.GenerateOptions
}

func (m *mockGenerator) Generate(
	_ context.Context, contextText string, opts driven.GenerateOptions,
) (string, error) {
	m.lastContext = contextText
	m.lastOpts = opts
	if m.genErr != nil {
		return "", m.genErr
	}
	if m.response == "" {
		return "generated answer", nil
	}
	return m.response, nil
}

func (m *mockGenerator) ModelName() string {
	return "mock-gen"
}

func (m *mockGenerator) Ping(_ context.Context) error {
	return nil
}

func (m *mockGenerator) Close() error {
	return nil
}

// textFile builds a FileInfo for a plain text file.
func textFile(id, name string) domain.FileInfo {
	return domain.FileInfo{
		ID:       id,
		Name:     name,
		MIMEType: "text/plain",
	}
}

// deckFile builds a FileInfo with an unsupported slide MIME type.
func deckFile(id, name string) domain.FileInfo {
	return domain.FileInfo{
		ID:       id,
		Name:     name,
		MIMEType: "application/vnd.ms-powerpoint",
	}
}
