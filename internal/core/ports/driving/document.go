package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// DocumentService manages indexed documents.
type DocumentService interface {
	// List returns documents matching the filter.
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)

	// Get retrieves a document by ID. Returns nil, nil when absent.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// GetContent returns the document text reassembled from its chunks.
	GetContent(ctx context.Context, documentID string) (string, error)

	// GetDetails returns metadata for display.
	GetDetails(ctx context.Context, documentID string) (*DocumentDetails, error)

	// Delete removes a document everywhere. Returns false if it was absent.
	Delete(ctx context.Context, documentID string) (bool, error)

	// GetSimilar returns documents close to documentID, best first.
	GetSimilar(ctx context.Context, documentID string, limit int) ([]domain.SearchResult, error)

	// Open opens the document's file in the default application.
	Open(ctx context.Context, documentID string) error
}

// DocumentDetails provides a flattened view of document metadata.
type DocumentDetails struct {
	ID         string
	Title      string
	Path       string
	Type       domain.DocumentType
	Size       int64
	ChunkCount int
	Concepts   []string
	Created    time.Time
	Modified   time.Time
	Indexed    time.Time

	// Metadata contains flattened key-value pairs for display.
	Metadata map[string]string
}
