package driving

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search runs a semantic or lexical search across indexed documents.
	// An empty query returns no results.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
