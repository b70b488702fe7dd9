package driven

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
// Implementations: an external Qdrant collection, or an in-process cosine
// scan over embeddings held in the metadata store.
type VectorIndex interface {
	// Upsert inserts or replaces the vector for a chunk ID.
	Upsert(ctx context.Context, id string, vector []float32, meta VectorMetadata) error

	// Query returns matches ordered by descending cosine similarity.
	// Ties keep insertion order.
	Query(ctx context.Context, vector []float32, q VectorQuery) ([]VectorMatch, error)

	// DeleteMany removes vectors by chunk ID. Missing IDs are ignored.
	DeleteMany(ctx context.Context, ids []string) error

	// Close releases resources.
	Close() error
}

// VectorMetadata is stored alongside each vector.
type VectorMetadata struct {
	DocumentID string
	ChunkIndex int
	Type       domain.DocumentType
}

// VectorQuery configures a nearest-neighbour query.
type VectorQuery struct {
	TopK   int
	Offset int

	// Types restricts matches to these document types. Empty means all.
	Types []domain.DocumentType

	// ExcludeDocumentID drops matches belonging to this document.
	ExcludeDocumentID string
}

// VectorMatch represents a similarity search result.
type VectorMatch struct {
	// ID is the matched chunk ID.
	ID         string
	DocumentID string
	ChunkIndex int

	// Score is the cosine similarity in [-1, 1].
	Score float64
}
