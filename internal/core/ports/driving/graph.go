package driving

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// GraphService exposes the concept graph.
type GraphService interface {
	// GetKnowledgeGraph returns a closed subgraph selected by opts.
	GetKnowledgeGraph(ctx context.Context, opts domain.GraphOptions) (*domain.KnowledgeGraph, error)

	// Export mirrors the selected subgraph into the configured graph database.
	Export(ctx context.Context, opts domain.GraphOptions) (*domain.KnowledgeGraph, error)
}
