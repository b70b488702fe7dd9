package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// FullTextIndex provides lexical search over indexed documents.
// Backed by SQLite FTS5 with BM25 ranking.
type FullTextIndex interface {
	// SearchFullText matches query terms against title, content, tags and
	// summary, applying filters in the query itself. Hits are ordered by
	// BM25 rank, best first.
	SearchFullText(ctx context.Context, query string, opts FullTextOptions) ([]FullTextHit, error)
}

// FullTextOptions filters a lexical query.
type FullTextOptions struct {
	Types  []domain.DocumentType
	From   *time.Time
	To     *time.Time
	Tags   []string
	Limit  int
	Offset int
}

// FullTextHit represents a search result from the FTS index.
type FullTextHit struct {
	Document domain.Document

	// Rank is the raw BM25 score. Lower (more negative) is better.
	Rank float64

	// Chunk is the first chunk containing a query term, if any.
	Chunk *domain.Chunk
}
