package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// stubChunks serves a fixed embedding list; other DocumentStore methods are unused.
type stubChunks struct {
	driven.DocumentStore
	embedded []driven.EmbeddedChunk
}

func (s *stubChunks) EachEmbedding(
	_ context.Context,
	types []domain.DocumentType,
	fn func(driven.EmbeddedChunk) error,
) error {
	for _, ec := range s.embedded {
		if !domain.ContainsType(types, ec.Type) {
			continue
		}
		if err := fn(ec); err != nil {
			return err
		}
	}
	return nil
}

func TestCosineSimilarity(t *testing.T) {
	v := []float32{0.6, 0.8}
	neg := []float32{-0.6, -0.8}

	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity(v, neg), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity(v, []float32{0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(v, []float32{1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestIndex_Query_RanksAndPages(t *testing.T) {
	store := &stubChunks{embedded: []driven.EmbeddedChunk{
		{ID: "c1", DocumentID: "d1", ChunkIndex: 0, Type: domain.DocumentTypeText, Embedding: []float32{0, 1}},
		{ID: "c2", DocumentID: "d2", ChunkIndex: 0, Type: domain.DocumentTypePDF, Embedding: []float32{1, 0}},
		{ID: "c3", DocumentID: "d3", ChunkIndex: 4, Type: domain.DocumentTypeText, Embedding: []float32{1, 0}},
		{ID: "c4", DocumentID: "d4", ChunkIndex: 0, Type: domain.DocumentTypeText, Embedding: []float32{1, 1}},
	}}
	idx := New(store)
	ctx := context.Background()

	matches, err := idx.Query(ctx, []float32{1, 0}, driven.VectorQuery{})
	require.NoError(t, err)
	require.Len(t, matches, 4)
	assert.Equal(t, []string{"c2", "c3", "c4", "c1"}, matchIDs(matches), "ties keep insertion order")
	assert.Equal(t, 4, matches[1].ChunkIndex)

	matches, err = idx.Query(ctx, []float32{1, 0}, driven.VectorQuery{TopK: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c4"}, matchIDs(matches))

	matches, err = idx.Query(ctx, []float32{1, 0}, driven.VectorQuery{Types: []domain.DocumentType{domain.DocumentTypePDF}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, matchIDs(matches))

	matches, err = idx.Query(ctx, []float32{1, 0}, driven.VectorQuery{ExcludeDocumentID: "d2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c4", "c1"}, matchIDs(matches))

	matches, err = idx.Query(ctx, []float32{1, 0}, driven.VectorQuery{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndex_Query_EmptyVector(t *testing.T) {
	_, err := New(&stubChunks{}).Query(context.Background(), nil, driven.VectorQuery{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_NoOps(t *testing.T) {
	idx := New(&stubChunks{})
	ctx := context.Background()
	assert.NoError(t, idx.Upsert(ctx, "c1", []float32{1}, driven.VectorMetadata{}))
	assert.NoError(t, idx.DeleteMany(ctx, []string{"c1"}))
	assert.NoError(t, idx.Close())
}

func matchIDs(matches []driven.VectorMatch) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.ID
	}
	return out
}
