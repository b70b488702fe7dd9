package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
	"github.com/custodia-labs/kindex/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// semanticOverFetch widens vector queries to survive grouping and filtering.
const semanticOverFetch = 4

// SearchService dispatches queries to the semantic or lexical path.
type SearchService struct {
	docStore         driven.DocumentStore
	fullText         driven.FullTextIndex
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
}

// NewSearchService creates a new search service.
// The vectorIndex and embeddingService parameters are optional (can be nil).
func NewSearchService(
	docStore driven.DocumentStore,
	fullText driven.FullTextIndex,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
) *SearchService {
	return &SearchService{
		docStore:         docStore,
		fullText:         fullText,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
	}
}

// Search runs a semantic or lexical search across indexed documents.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	if opts.UseSemanticSearch {
		if s.vectorIndex == nil || s.embeddingService == nil {
			logger.Debug("Semantic search requested but unavailable, using lexical")
		} else {
			results, err := s.semanticSearch(ctx, query, opts)
			switch {
			case err != nil:
				logger.Warn("Semantic search failed, falling back to lexical: %v", err)
			case len(results) == 0 && opts.Offset == 0:
				logger.Debug("Semantic search returned nothing, trying lexical")
			default:
				logger.Info("Semantic results: %d", len(results))
				return results, nil
			}
		}
	}

	results, err := s.lexicalSearch(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Info("Lexical results: %d", len(results))
	return results, nil
}

// lexicalSearch runs the FTS query with filters pushed into the store.
func (s *SearchService) lexicalSearch(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	hits, err := s.fullText.SearchFullText(ctx, query, driven.FullTextOptions{
		Types:  opts.Types,
		From:   opts.DateFrom,
		To:     opts.DateTo,
		Tags:   opts.Tags,
		Limit:  opts.EffectiveLimit(),
		Offset: max(opts.Offset, 0),
	})
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		relevance := LexicalRelevance(hit.Rank)
		if relevance < opts.MinRelevance {
			continue
		}

		text := hit.Document.Content
		chunkIndex := 0
		if hit.Chunk != nil {
			text = hit.Chunk.Content
			chunkIndex = hit.Chunk.Index
		}
		results = append(results, newResult(&hit.Document, relevance, Snippet(text, query),
			chunkIndex, domain.MatchLexical))
	}
	return results, nil
}

// LexicalRelevance maps a BM25 rank onto [0, 1).
func LexicalRelevance(rank float64) float64 {
	r := math.Abs(rank)
	return r / (1 + r)
}

// semanticSearch embeds the query and groups vector matches by document.
func (s *SearchService) semanticSearch(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	vec, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, domain.NewEmbeddingError(fmt.Errorf("query embedding: %w", err))
	}

	limit := opts.EffectiveLimit()
	offset := max(opts.Offset, 0)
	matches, err := s.vectorIndex.Query(ctx, vec, driven.VectorQuery{
		TopK:  (offset + limit) * semanticOverFetch,
		Types: opts.Types,
	})
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	logger.Debug("Vector matches: %d", len(matches))

	// Matches arrive best first, so the first chunk per document wins.
	seen := make(map[string]struct{}, len(matches))
	var results []domain.SearchResult
	for _, m := range matches {
		if _, ok := seen[m.DocumentID]; ok {
			continue
		}
		seen[m.DocumentID] = struct{}{}

		if m.Score < opts.MinRelevance {
			continue
		}

		doc, err := s.docStore.GetDocument(ctx, m.DocumentID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !opts.InDateRange(doc.Modified) || !opts.MatchesTags(doc.Tags) {
			continue
		}

		text := doc.Content
		if chunk, err := s.docStore.GetChunk(ctx, m.ID); err == nil {
			text = chunk.Content
		}
		results = append(results, newResult(doc, m.Score, Snippet(text, query), m.ChunkIndex, domain.MatchSemantic))
	}

	return paginate(results, offset, limit), nil
}

func newResult(
	doc *domain.Document,
	relevance float64,
	snippet string,
	chunkIndex int,
	match domain.MatchType,
) domain.SearchResult {
	return domain.SearchResult{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Path:       doc.Path,
		Type:       doc.Type,
		Relevance:  relevance,
		Snippet:    snippet,
		Metadata: domain.SearchResultMetadata{
			ChunkIndex: chunkIndex,
			MatchType:  match,
			Modified:   doc.Modified,
			Tags:       doc.Tags,
		},
	}
}

// paginate applies offset and limit to results.
func paginate(results []domain.SearchResult, offset, limit int) []domain.SearchResult {
	if offset >= len(results) {
		return []domain.SearchResult{}
	}
	end := min(offset+limit, len(results))
	return results[offset:end]
}
