package driven

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// GraphStore persists concepts and relationships.
// ApplyExtraction is the only writer, so frequencies and weights can
// only grow through extraction events.
type GraphStore interface {
	// ApplyExtraction records the concepts seen in one text slice of a
	// document in a single transaction: concept frequencies, CONTAINS
	// edges from the document and RELATED edges between co-occurring
	// concepts.
	ApplyExtraction(ctx context.Context, documentID string, concepts []domain.ExtractedConcept) error

	// GetConcept retrieves a concept by ID.
	GetConcept(ctx context.Context, id string) (*domain.Concept, error)

	// ListConcepts returns concepts by descending frequency.
	ListConcepts(ctx context.Context, limit int) ([]domain.Concept, error)

	// ListRelationships returns every relationship at or above minWeight.
	ListRelationships(ctx context.Context, minWeight float64) ([]domain.Relationship, error)

	// ConceptsForDocument returns the concepts a document CONTAINS.
	ConceptsForDocument(ctx context.Context, documentID string) ([]domain.Concept, error)

	// DocumentsSharingConcepts ranks other documents by the number of
	// concepts they share with documentID.
	DocumentsSharingConcepts(ctx context.Context, documentID string, limit int) ([]SharedConcepts, error)
}

// SharedConcepts counts the concepts two documents have in common.
type SharedConcepts struct {
	DocumentID string
	Shared     int
}

// GraphExporter mirrors a knowledge graph snapshot into an external store.
type GraphExporter interface {
	Export(ctx context.Context, graph *domain.KnowledgeGraph) error
	Close(ctx context.Context) error
}
