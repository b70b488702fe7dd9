package domain

import "time"

// DefaultSearchLimit is used when SearchOptions.Limit is not positive.
const DefaultSearchLimit = 10

// MatchType records which retrieval path produced a result.
type MatchType string

// Retrieval paths.
const (
	MatchLexical  MatchType = "lexical"
	MatchSemantic MatchType = "semantic"

	// MatchConcept marks similar-document results ranked by shared concepts.
	MatchConcept MatchType = "concept"
)

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Offset is the number of results to skip.
	Offset int

	// UseSemanticSearch enables vector similarity search.
	// Falls back to full-text search when embeddings are unavailable.
	UseSemanticSearch bool

	// Types restricts results to the given document types.
	Types []DocumentType

	// DateFrom and DateTo bound the document modification time.
	DateFrom *time.Time
	DateTo   *time.Time

	// Tags restricts results to documents carrying any of the tags.
	Tags []string

	// MinRelevance drops results scoring below this threshold.
	MinRelevance float64
}

// EffectiveLimit returns Limit or the default when unset.
func (o SearchOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultSearchLimit
	}
	return o.Limit
}

// InDateRange reports whether t falls within the optional bounds.
func (o SearchOptions) InDateRange(t time.Time) bool {
	if o.DateFrom != nil && t.Before(*o.DateFrom) {
		return false
	}
	if o.DateTo != nil && t.After(*o.DateTo) {
		return false
	}
	return true
}

// MatchesTags reports whether tags satisfies the tag filter.
func (o SearchOptions) MatchesTags(tags Tags) bool {
	if len(o.Tags) == 0 {
		return true
	}
	for _, want := range o.Tags {
		if tags.Has(want) {
			return true
		}
	}
	return false
}

// SearchResult represents a single search hit. It is a read-only
// projection and is never persisted.
type SearchResult struct {
	DocumentID string
	Title      string
	Path       string
	Type       DocumentType

	// Relevance is in [0, 1] for lexical hits and [-1, 1] for semantic ones.
	Relevance float64

	// Snippet is an excerpt with matched terms wrapped in **.
	Snippet string

	Metadata SearchResultMetadata
}

// SearchResultMetadata carries the details behind a hit.
type SearchResultMetadata struct {
	ChunkIndex int
	MatchType  MatchType
	Modified   time.Time
	Tags       Tags
}
