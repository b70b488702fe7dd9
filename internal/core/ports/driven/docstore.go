package driven

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// SaveDocument upserts a document and replaces its chunks and CONTAINS
	// edges in a single transaction.
	SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByPath retrieves a document by its file path.
	GetDocumentByPath(ctx context.Context, path string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ChunkIDs returns the IDs of a document's chunks.
	ChunkIDs(ctx context.Context, documentID string) ([]string, error)

	// DeleteDocument removes a document, its chunks and CONTAINS edges.
	// Returns false if the document did not exist.
	DeleteDocument(ctx context.Context, id string) (bool, error)

	// ListDocuments returns documents matching the filter, newest first.
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)

	// CountDocuments returns the number of indexed documents.
	CountDocuments(ctx context.Context) (int, error)

	// EachEmbedding calls fn for every chunk carrying an embedding, in
	// insertion order. Returning an error from fn stops the iteration.
	EachEmbedding(ctx context.Context, types []domain.DocumentType, fn func(EmbeddedChunk) error) error
}

// EmbeddedChunk is the projection of a chunk used for vector scans.
type EmbeddedChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Type       domain.DocumentType
	Embedding  []float32
}
