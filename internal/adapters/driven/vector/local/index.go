// Package local provides an in-process vector index that scans chunk
// embeddings held in the metadata store.
package local

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index answers similarity queries with a full cosine scan.
// Embeddings are persisted on chunk rows by the document store, so
// Upsert and DeleteMany have nothing to do.
type Index struct {
	chunks driven.DocumentStore
}

// New creates an index reading embeddings from chunks.
func New(chunks driven.DocumentStore) *Index {
	return &Index{chunks: chunks}
}

// Upsert is a no-op; the vector is stored with its chunk.
func (idx *Index) Upsert(_ context.Context, _ string, _ []float32, _ driven.VectorMetadata) error {
	return nil
}

// Query scans every embedded chunk and ranks by cosine similarity.
func (idx *Index) Query(ctx context.Context, vector []float32, q driven.VectorQuery) ([]driven.VectorMatch, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector: %w", domain.ErrInvalidInput)
	}

	var matches []driven.VectorMatch
	err := idx.chunks.EachEmbedding(ctx, q.Types, func(ec driven.EmbeddedChunk) error {
		if q.ExcludeDocumentID != "" && ec.DocumentID == q.ExcludeDocumentID {
			return nil
		}
		matches = append(matches, driven.VectorMatch{
			ID:         ec.ID,
			DocumentID: ec.DocumentID,
			ChunkIndex: ec.ChunkIndex,
			Score:      CosineSimilarity(vector, ec.Embedding),
		})
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return page(matches, q.Offset, q.TopK), nil
}

// DeleteMany is a no-op; vectors go away with their chunk rows.
func (idx *Index) DeleteMany(_ context.Context, _ []string) error {
	return nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func page(matches []driven.VectorMatch, offset, limit int) []driven.VectorMatch {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matches) {
		return nil
	}
	matches = matches[offset:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}
