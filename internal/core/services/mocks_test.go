package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/extractors"
	"github.com/custodia-labs/kindex/internal/postprocessors"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Each text embeds to a fixed vector unless vectors maps it to another.
type mockEmbeddingService struct {
	embedding []float32
	vectors   map[string][]float32
	embedErr  error
	failOn    string

	mu      sync.Mutex
	calls   int
	batches int
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, domain.NewEmbeddingError(domain.ErrRateLimited)
	}
	for key, vec := range m.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return m.embedding, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
	result := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return len(m.embedding) }
func (m *mockEmbeddingService) ModelName() string            { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockLLMService implements driven.LLMService for testing.
// Responses are returned in order; the last one repeats.
type mockLLMService struct {
	responses []string
	err       error

	mu      sync.Mutex
	prompts []string
	opts    []driven.GenerateOptions
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	i := min(len(m.prompts)-1, len(m.responses)-1)
	return m.responses[i], nil
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	matches  []driven.VectorMatch
	queryErr error

	mu        sync.Mutex
	vectors   map[string]driven.VectorMetadata
	deleted   []string
	lastQuery driven.VectorQuery
}

func newMockVectorIndex() *mockVectorIndex {
	return &mockVectorIndex{vectors: make(map[string]driven.VectorMetadata)}
}

func (m *mockVectorIndex) Upsert(_ context.Context, id string, _ []float32, meta driven.VectorMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[id] = meta
	return nil
}

func (m *mockVectorIndex) Query(_ context.Context, _ []float32, q driven.VectorQuery) ([]driven.VectorMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []driven.VectorMatch
	for _, match := range m.matches {
		if q.ExcludeDocumentID != "" && match.DocumentID == q.ExcludeDocumentID {
			continue
		}
		out = append(out, match)
	}
	return out, nil
}

func (m *mockVectorIndex) DeleteMany(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.vectors, id)
	}
	m.deleted = append(m.deleted, ids...)
	return nil
}

func (m *mockVectorIndex) Close() error { return nil }

func (m *mockVectorIndex) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vectors)
}

// mockGraphExporter implements driven.GraphExporter for testing.
type mockGraphExporter struct {
	exported *domain.KnowledgeGraph
	err      error
}

func (m *mockGraphExporter) Export(_ context.Context, graph *domain.KnowledgeGraph) error {
	m.exported = graph
	return m.err
}

func (m *mockGraphExporter) Close(_ context.Context) error { return nil }

// --- Helpers ---

// testEnv wires services over a temporary SQLite store.
type testEnv struct {
	store   *sqlite.Store
	indexer *Indexer
	graph   *GraphBuilder
	vectors *mockVectorIndex
	embed   *mockEmbeddingService
	llm     *mockLLMService
}

type envOption func(*testEnv)

func withEmbeddings(embed *mockEmbeddingService) envOption {
	return func(e *testEnv) {
		e.embed = embed
		e.vectors = newMockVectorIndex()
	}
}

func withLLM(llm *mockLLMService) envOption {
	return func(e *testEnv) { e.llm = llm }
}

func setupEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{store: store}
	for _, opt := range opts {
		opt(env)
	}

	pipelines := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(pipelines)

	var (
		llm        driven.LLMService
		vectors    driven.VectorIndex
		embeddings driven.EmbeddingService
	)
	if env.llm != nil {
		llm = env.llm
	}
	if env.embed != nil {
		embeddings = env.embed
		vectors = env.vectors
	}

	env.graph = NewGraphBuilder(store.GraphStore(), store.DocumentStore(), llm, nil)
	env.indexer = NewIndexer(IndexerDeps{
		Extractors:       extractors.NewDefaultRegistry(),
		Pipelines:        pipelines,
		Documents:        store.DocumentStore(),
		VectorIndex:      vectors,
		EmbeddingService: embeddings,
		Enricher:         NewEnricher(llm, nil),
		Graph:            env.graph,
	})
	return env
}

func (e *testEnv) search() *SearchService {
	var (
		vectors    driven.VectorIndex
		embeddings driven.EmbeddingService
	)
	if e.embed != nil {
		vectors, embeddings = e.vectors, e.embed
	}
	return NewSearchService(e.store.DocumentStore(), e.store.FullTextIndex(), vectors, embeddings)
}

func (e *testEnv) documents() *DocumentService {
	var vectors driven.VectorIndex
	if e.vectors != nil {
		vectors = e.vectors
	}
	return NewDocumentService(e.store.DocumentStore(), e.store.GraphStore(), vectors, e.indexer)
}

// writeFile creates a file under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// words returns n distinct words prefixed with prefix.
func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = prefix + strings.Repeat("x", i%7)
	}
	return strings.Join(parts, " ")
}

// plainOptions disables every optional collaborator.
func plainOptions() domain.IndexOptions {
	return domain.IndexOptions{Recursive: true}
}
