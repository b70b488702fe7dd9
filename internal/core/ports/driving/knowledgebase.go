package driving

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// KnowledgeBase is the engine's public surface. CLI, MCP, HTTP and TUI
// adapters talk to it rather than to individual services.
type KnowledgeBase interface {
	IndexDocument(ctx context.Context, path string, opts domain.IndexOptions) (string, error)
	IndexDirectory(ctx context.Context, path string, opts domain.IndexOptions) (domain.IndexingProgress, error)
	// StartIndexDirectory claims the indexer and runs IndexDirectory in the
	// background. It fails with domain.ErrIndexingInProgress when a run is
	// already active.
	StartIndexDirectory(path string, opts domain.IndexOptions) error
	GetIndexingProgress() domain.IndexingProgress
	PauseIndexing() bool
	ResumeIndexing() bool

	WatchDirectory(ctx context.Context, path string, opts domain.IndexOptions) error
	StopWatching(path string) bool
	StopAllWatching()
	WatchedPaths() []string

	SearchDocuments(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)

	// GetDocument returns nil, nil when the document does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	GetDocumentDetails(ctx context.Context, id string) (*DocumentDetails, error)
	GetDocumentContent(ctx context.Context, id string) (string, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
	GetSimilarDocuments(ctx context.Context, id string, limit int) ([]domain.SearchResult, error)
	OpenDocument(ctx context.Context, id string) error

	GetKnowledgeGraph(ctx context.Context, opts domain.GraphOptions) (*domain.KnowledgeGraph, error)
	ExportGraph(ctx context.Context, opts domain.GraphOptions) (*domain.KnowledgeGraph, error)

	// IndexOptions returns options seeded from configured defaults.
	IndexOptions() domain.IndexOptions
}
