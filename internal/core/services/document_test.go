package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/ids"
)

func TestDocumentService_Get(t *testing.T) {
	env := setupEnv(t)
	docs := indexFixtures(t, env, plainOptions())
	svc := env.documents()
	ctx := context.Background()

	doc, err := svc.Get(ctx, docs["alpha.txt"])
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "alpha", doc.Title)

	missing, err := svc.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentService_List(t *testing.T) {
	env := setupEnv(t)
	indexFixtures(t, env, plainOptions())

	all, err := env.documents().List(context.Background(), domain.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	md, err := env.documents().List(context.Background(), domain.DocumentFilter{
		Types: []domain.DocumentType{domain.DocumentTypeMarkdown},
	})
	require.NoError(t, err)
	assert.Len(t, md, 1)
}

func TestDocumentService_GetContent(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	paragraphs := []string{words("one", 25), words("two", 25), words("three", 25)}
	original := strings.Join(paragraphs, "\n\n")
	path := writeFile(t, t.TempDir(), "long.txt", original)

	opts := plainOptions()
	opts.ChunkSize = 120
	opts.ChunkOverlapWords = 5
	id, err := env.indexer.IndexDocument(ctx, path, opts)
	require.NoError(t, err)

	chunks, err := env.store.DocumentStore().GetChunks(ctx, id)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	content, err := env.documents().GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, original, content, "overlap words are removed on reassembly")

	_, err = env.documents().GetContent(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_GetDetails(t *testing.T) {
	llm := &mockLLMService{responses: []string{`[{"name":"Budget","type":"topic"}]`}}
	env := setupEnv(t, withLLM(llm))
	opts := plainOptions()
	opts.ExtractConcepts = true
	opts.Tags = []string{"finance"}
	docs := indexFixtures(t, env, opts)

	details, err := env.documents().GetDetails(context.Background(), docs["beta.md"])
	require.NoError(t, err)
	assert.Equal(t, docs["beta.md"], details.ID)
	assert.Equal(t, domain.DocumentTypeMarkdown, details.Type)
	assert.Equal(t, 1, details.ChunkCount)
	assert.Equal(t, []string{"Budget"}, details.Concepts)
	assert.Equal(t, "finance", details.Metadata["tags"])
	assert.NotEmpty(t, details.Metadata["words"])
}

func TestDocumentService_Delete(t *testing.T) {
	env := setupEnv(t)
	docs := indexFixtures(t, env, plainOptions())
	svc := env.documents()
	ctx := context.Background()

	removed, err := svc.Delete(ctx, docs["gamma.txt"])
	require.NoError(t, err)
	assert.True(t, removed)

	chunks, err := env.store.DocumentStore().GetChunks(ctx, docs["gamma.txt"])
	require.NoError(t, err)
	assert.Empty(t, chunks)

	removed, err = svc.Delete(ctx, docs["gamma.txt"])
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDocumentService_GetSimilar_Vectors(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	env := setupEnv(t, withEmbeddings(embed))
	opts := plainOptions()
	opts.GenerateEmbeddings = true
	docs := indexFixtures(t, env, opts)

	env.vectors.matches = []driven.VectorMatch{
		{ID: ids.Chunk(docs["alpha.txt"], 0), DocumentID: docs["alpha.txt"], Score: 1},
		{ID: ids.Chunk(docs["beta.md"], 0), DocumentID: docs["beta.md"], Score: 0.7},
		{ID: ids.Chunk(docs["gamma.txt"], 0), DocumentID: docs["gamma.txt"], Score: 0.2},
	}

	results, err := env.documents().GetSimilar(context.Background(), docs["alpha.txt"], 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, docs["beta.md"], results[0].DocumentID, "the document itself is excluded")
	assert.Equal(t, domain.MatchSemantic, results[0].Metadata.MatchType)
	assert.Equal(t, docs["alpha.txt"], env.vectors.lastQuery.ExcludeDocumentID)
}

func TestDocumentService_GetSimilar_Concepts(t *testing.T) {
	llm := &mockLLMService{responses: []string{`[{"name":"Rivers"},{"name":"Weather"}]`}}
	env := setupEnv(t, withLLM(llm))
	opts := plainOptions()
	opts.ExtractConcepts = true
	docs := indexFixtures(t, env, opts)

	results, err := env.documents().GetSimilar(context.Background(), docs["alpha.txt"], 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, docs["alpha.txt"], r.DocumentID)
		assert.Equal(t, domain.MatchConcept, r.Metadata.MatchType)
		assert.InDelta(t, 1.0, r.Relevance, 1e-9)
	}
}

func TestDocumentService_GetSimilar_Nothing(t *testing.T) {
	env := setupEnv(t)
	docs := indexFixtures(t, env, plainOptions())

	results, err := env.documents().GetSimilar(context.Background(), docs["alpha.txt"], 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = env.documents().GetSimilar(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Open(t *testing.T) {
	env := setupEnv(t)
	docs := indexFixtures(t, env, plainOptions())

	svc := env.documents()
	var opened string
	svc.opener = func(path string) error {
		opened = path
		return nil
	}

	require.NoError(t, svc.Open(context.Background(), docs["alpha.txt"]))
	assert.True(t, strings.HasSuffix(opened, "alpha.txt"))
}

func TestMeanEmbedding(t *testing.T) {
	assert.Nil(t, meanEmbedding(nil))
	assert.Nil(t, meanEmbedding([]domain.Chunk{{Content: "no vector"}}))

	mean := meanEmbedding([]domain.Chunk{
		{Embedding: []float32{1, 0}},
		{Embedding: []float32{0, 1}},
		{},
		{Embedding: []float32{1, 1, 1}},
	})
	assert.InDeltaSlice(t, []float32{0.5, 0.5}, mean, 1e-6)
}
