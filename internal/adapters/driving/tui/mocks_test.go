package tui

import (
	"context"
	"sync"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

// mockKnowledgeBase is a mock implementation of driving.KnowledgeBase.
type mockKnowledgeBase struct {
	mu sync.Mutex

	results   []domain.SearchResult
	documents []domain.Document
	details   *driving.DocumentDetails
	content   string
	watched   []string
	err       error
	openErr   error

	// steps are emitted through OnProgress by IndexDirectory.
	steps    []domain.IndexingProgress
	final    domain.IndexingProgress
	blockRun bool

	opened   []string
	progress domain.IndexingProgress
}

var _ driving.KnowledgeBase = (*mockKnowledgeBase)(nil)

func (m *mockKnowledgeBase) IndexDocument(context.Context, string, domain.IndexOptions) (string, error) {
	return "", m.err
}

func (m *mockKnowledgeBase) IndexDirectory(
	ctx context.Context,
	_ string,
	opts domain.IndexOptions,
) (domain.IndexingProgress, error) {
	for _, step := range m.steps {
		m.setProgress(step)
		if opts.OnProgress != nil {
			opts.OnProgress(step)
		}
	}
	if m.blockRun {
		<-ctx.Done()
		final := m.GetIndexingProgress()
		final.Status = domain.StatusError
		final.Error = ctx.Err().Error()
		m.setProgress(final)
		return final, nil
	}
	m.setProgress(m.final)
	return m.final, m.err
}

func (m *mockKnowledgeBase) setProgress(p domain.IndexingProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = p
}

func (m *mockKnowledgeBase) StartIndexDirectory(_ string, _ domain.IndexOptions) error {
	return nil
}

func (m *mockKnowledgeBase) GetIndexingProgress() domain.IndexingProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

func (m *mockKnowledgeBase) PauseIndexing() bool  { return false }
func (m *mockKnowledgeBase) ResumeIndexing() bool { return false }

func (m *mockKnowledgeBase) WatchDirectory(context.Context, string, domain.IndexOptions) error {
	return m.err
}
func (m *mockKnowledgeBase) StopWatching(string) bool { return false }
func (m *mockKnowledgeBase) StopAllWatching()         {}
func (m *mockKnowledgeBase) WatchedPaths() []string   { return m.watched }

func (m *mockKnowledgeBase) SearchDocuments(
	context.Context, string, domain.SearchOptions,
) ([]domain.SearchResult, error) {
	return m.results, m.err
}

func (m *mockKnowledgeBase) ListDocuments(context.Context, domain.DocumentFilter) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockKnowledgeBase) GetDocument(context.Context, string) (*domain.Document, error) {
	return nil, m.err
}

func (m *mockKnowledgeBase) GetDocumentDetails(context.Context, string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockKnowledgeBase) GetDocumentContent(context.Context, string) (string, error) {
	return m.content, m.err
}

func (m *mockKnowledgeBase) DeleteDocument(context.Context, string) (bool, error) {
	return m.err == nil, m.err
}

func (m *mockKnowledgeBase) GetSimilarDocuments(context.Context, string, int) ([]domain.SearchResult, error) {
	return m.results, m.err
}

func (m *mockKnowledgeBase) OpenDocument(_ context.Context, id string) error {
	m.opened = append(m.opened, id)
	return m.openErr
}

func (m *mockKnowledgeBase) GetKnowledgeGraph(context.Context, domain.GraphOptions) (*domain.KnowledgeGraph, error) {
	return &domain.KnowledgeGraph{}, m.err
}

func (m *mockKnowledgeBase) ExportGraph(context.Context, domain.GraphOptions) (*domain.KnowledgeGraph, error) {
	return &domain.KnowledgeGraph{}, m.err
}

func (m *mockKnowledgeBase) IndexOptions() domain.IndexOptions {
	return domain.IndexOptions{Recursive: true}
}
