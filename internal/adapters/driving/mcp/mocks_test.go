package mcp

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

// mockKnowledgeBase is a mock implementation of driving.KnowledgeBase.
type mockKnowledgeBase struct {
	results   []domain.SearchResult
	documents []domain.Document
	details   *driving.DocumentDetails
	content   string
	graph     *domain.KnowledgeGraph
	progress  domain.IndexingProgress
	indexedID string
	err       error

	lastQuery   string
	lastSearch  domain.SearchOptions
	lastGraph   domain.GraphOptions
	lastIndex   domain.IndexOptions
	lastLimit   int
	indexedDir  string
	indexedFile string
}

var _ driving.KnowledgeBase = (*mockKnowledgeBase)(nil)

func (m *mockKnowledgeBase) IndexDocument(_ context.Context, path string, opts domain.IndexOptions) (string, error) {
	m.indexedFile = path
	m.lastIndex = opts
	return m.indexedID, m.err
}

func (m *mockKnowledgeBase) IndexDirectory(
	_ context.Context,
	path string,
	opts domain.IndexOptions,
) (domain.IndexingProgress, error) {
	m.indexedDir = path
	m.lastIndex = opts
	return m.progress, m.err
}

func (m *mockKnowledgeBase) StartIndexDirectory(path string, opts domain.IndexOptions) error {
	m.indexedDir = path
	m.lastIndex = opts
	return m.err
}

func (m *mockKnowledgeBase) GetIndexingProgress() domain.IndexingProgress { return m.progress }
func (m *mockKnowledgeBase) PauseIndexing() bool                          { return false }
func (m *mockKnowledgeBase) ResumeIndexing() bool                         { return false }

func (m *mockKnowledgeBase) WatchDirectory(_ context.Context, _ string, _ domain.IndexOptions) error {
	return m.err
}
func (m *mockKnowledgeBase) StopWatching(_ string) bool { return false }
func (m *mockKnowledgeBase) StopAllWatching()           {}
func (m *mockKnowledgeBase) WatchedPaths() []string     { return nil }

func (m *mockKnowledgeBase) SearchDocuments(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastSearch = opts
	return m.results, m.err
}

func (m *mockKnowledgeBase) ListDocuments(_ context.Context, _ domain.DocumentFilter) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockKnowledgeBase) GetDocument(_ context.Context, _ string) (*domain.Document, error) {
	if len(m.documents) == 0 {
		return nil, m.err
	}
	return &m.documents[0], m.err
}

func (m *mockKnowledgeBase) GetDocumentDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockKnowledgeBase) GetDocumentContent(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}

func (m *mockKnowledgeBase) DeleteDocument(_ context.Context, _ string) (bool, error) {
	return m.err == nil, m.err
}

func (m *mockKnowledgeBase) GetSimilarDocuments(_ context.Context, _ string, limit int) ([]domain.SearchResult, error) {
	m.lastLimit = limit
	return m.results, m.err
}

func (m *mockKnowledgeBase) OpenDocument(_ context.Context, _ string) error {
	return m.err
}

func (m *mockKnowledgeBase) GetKnowledgeGraph(
	_ context.Context,
	opts domain.GraphOptions,
) (*domain.KnowledgeGraph, error) {
	m.lastGraph = opts
	return m.graph, m.err
}

func (m *mockKnowledgeBase) ExportGraph(_ context.Context, _ domain.GraphOptions) (*domain.KnowledgeGraph, error) {
	return m.graph, m.err
}

func (m *mockKnowledgeBase) IndexOptions() domain.IndexOptions {
	return domain.IndexOptions{Recursive: true, MaxConcurrentProcessing: 2}
}
