package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

func newTestServer(t *testing.T, kb *mockKnowledgeBase) *Server {
	t.Helper()
	server, err := NewServer(&Ports{KnowledgeBase: kb})
	require.NoError(t, err)
	return server
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		kb := &mockKnowledgeBase{
			results: []domain.SearchResult{{
				DocumentID: "doc-1",
				Title:      "Test Doc",
				Path:       "/path/to/doc.md",
				Type:       domain.DocumentTypeMarkdown,
				Relevance:  0.75,
				Snippet:    "the **matched** text",
				Metadata: domain.SearchResultMetadata{
					MatchType: domain.MatchLexical,
					Tags:      domain.Tags{"notes"},
				},
			}},
		}
		server := newTestServer(t, kb)

		input := SearchInput{Query: "matched", Limit: 5, Semantic: true, Types: []string{"markdown"}}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "doc-1", output.Results[0].DocumentID)
		assert.Equal(t, "Test Doc", output.Results[0].Title)
		assert.Equal(t, "/path/to/doc.md", output.Results[0].Path)
		assert.Equal(t, "markdown", output.Results[0].Type)
		assert.InDelta(t, 0.75, output.Results[0].Relevance, 1e-9)
		assert.Equal(t, "lexical", output.Results[0].MatchType)
		assert.Equal(t, []string{"notes"}, output.Results[0].Tags)

		assert.Equal(t, "matched", kb.lastQuery)
		assert.Equal(t, 5, kb.lastSearch.Limit)
		assert.True(t, kb.lastSearch.UseSemanticSearch)
		assert.Equal(t, []domain.DocumentType{domain.DocumentTypeMarkdown}, kb.lastSearch.Types)
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeBase{})
		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "x", Types: []string{"video"}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeBase{err: errors.New("search failed")})
		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleGetDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("returns details", func(t *testing.T) {
		modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		server := newTestServer(t, &mockKnowledgeBase{details: &driving.DocumentDetails{
			ID:         "doc-1",
			Title:      "Budget",
			Path:       "/docs/budget.xlsx",
			Type:       domain.DocumentTypeExcel,
			ChunkCount: 3,
			Concepts:   []string{"Forecast"},
			Modified:   modified,
			Metadata:   map[string]string{"summary": "numbers"},
		}})

		_, output, err := server.handleGetDocument(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		require.NoError(t, err)
		assert.Equal(t, "Budget", output.Title)
		assert.Equal(t, "excel", output.Type)
		assert.Equal(t, 3, output.ChunkCount)
		assert.Equal(t, []string{"Forecast"}, output.Concepts)
		assert.Equal(t, "2024-05-01 12:00:00", output.Modified)
		assert.Equal(t, "numbers", output.Metadata["summary"])
	})

	t.Run("wraps not found", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeBase{err: domain.ErrNotFound})
		_, _, err := server.handleGetDocument(ctx, nil, DocumentInput{DocumentID: "missing"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), "missing")
	})
}

func TestServer_handleGetDocumentContent(t *testing.T) {
	server := newTestServer(t, &mockKnowledgeBase{content: "full text"})

	_, output, err := server.handleGetDocumentContent(context.Background(), nil, DocumentInput{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", output.DocumentID)
	assert.Equal(t, "full text", output.Content)
}

func TestServer_handleSimilarDocuments(t *testing.T) {
	kb := &mockKnowledgeBase{results: []domain.SearchResult{
		{DocumentID: "doc-2", Metadata: domain.SearchResultMetadata{MatchType: domain.MatchConcept}},
	}}
	server := newTestServer(t, kb)

	_, output, err := server.handleSimilarDocuments(context.Background(), nil, SimilarInput{DocumentID: "doc-1", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, output.Count)
	assert.Equal(t, "concept", output.Results[0].MatchType)
	assert.Equal(t, 3, kb.lastLimit)
}

func TestServer_handleKnowledgeGraph(t *testing.T) {
	kb := &mockKnowledgeBase{graph: &domain.KnowledgeGraph{
		Nodes: []domain.GraphNode{{ID: "a", Label: "A"}, {ID: "b", Label: "B"}},
		Edges: []domain.GraphEdge{{Source: "a", Target: "b", Type: domain.RelRelated, Weight: 1.5}},
	}}
	server := newTestServer(t, kb)

	input := GraphInput{CenterID: "a", Depth: 1, Limit: 20, MinWeight: 1, IncludeDocuments: true}
	_, output, err := server.handleKnowledgeGraph(context.Background(), nil, input)
	require.NoError(t, err)
	assert.Len(t, output.Nodes, 2)
	assert.Len(t, output.Edges, 1)
	assert.Equal(t, domain.GraphOptions{
		CenterID: "a", Depth: 1, Limit: 20, MinWeight: 1, IncludeDocuments: true,
	}, kb.lastGraph)
}

func TestServer_handleIndexPath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o600))

	t.Run("file", func(t *testing.T) {
		kb := &mockKnowledgeBase{indexedID: "doc-a"}
		server := newTestServer(t, kb)

		_, output, err := server.handleIndexPath(ctx, nil, IndexInput{Path: file, Tags: []string{"x"}})
		require.NoError(t, err)
		assert.Equal(t, "doc-a", output.DocumentID)
		assert.Equal(t, "completed", output.Status)
		assert.Equal(t, file, kb.indexedFile)
		assert.Equal(t, []string{"x"}, kb.lastIndex.Tags)
		assert.True(t, kb.lastIndex.Recursive, "defaults come from the knowledge base")
	})

	t.Run("directory", func(t *testing.T) {
		kb := &mockKnowledgeBase{progress: domain.IndexingProgress{
			Status: domain.StatusCompleted, Total: 4, Processed: 4, Failed: 1,
		}}
		server := newTestServer(t, kb)

		recursive := false
		_, output, err := server.handleIndexPath(ctx, nil, IndexInput{Path: dir, Recursive: &recursive})
		require.NoError(t, err)
		assert.Equal(t, dir, kb.indexedDir)
		assert.False(t, kb.lastIndex.Recursive)
		assert.Equal(t, IndexOutput{Status: "completed", Total: 4, Processed: 4, Failed: 1}, output)
	})

	t.Run("missing path", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeBase{})

		_, _, err := server.handleIndexPath(ctx, nil, IndexInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, _, err = server.handleIndexPath(ctx, nil, IndexInput{Path: filepath.Join(dir, "nope")})
		var fpe *domain.FileProcessingError
		assert.ErrorAs(t, err, &fpe)
	})
}
