package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"the search query to find documents"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Offset   int      `json:"offset,omitempty" jsonschema:"number of results to skip"`
	Semantic bool     `json:"semantic,omitempty" jsonschema:"use embedding similarity instead of keyword matching"`
	Types    []string `json:"types,omitempty" jsonschema:"restrict to document types: pdf, excel, csv, word, text, markdown"`
	Tags     []string `json:"tags,omitempty" jsonschema:"restrict to documents carrying any of these tags"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string   `json:"document_id"`
	Title      string   `json:"title"`
	Path       string   `json:"path"`
	Type       string   `json:"type"`
	Relevance  float64  `json:"relevance"`
	Snippet    string   `json:"snippet,omitempty"`
	MatchType  string   `json:"match_type"`
	Tags       []string `json:"tags,omitempty"`
}

// DocumentInput identifies a single document.
type DocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id returned by search"`
}

// DocumentOutput is the output schema for the get_document tool.
type DocumentOutput struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Path       string            `json:"path"`
	Type       string            `json:"type"`
	Size       int64             `json:"size"`
	ChunkCount int               `json:"chunk_count"`
	Concepts   []string          `json:"concepts,omitempty"`
	Modified   string            `json:"modified"`
	Indexed    string            `json:"indexed"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ContentOutput is the output schema for the get_document_content tool.
type ContentOutput struct {
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
}

// SimilarInput is the input schema for the similar_documents tool.
type SimilarInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to find neighbours for"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// GraphInput is the input schema for the knowledge_graph tool.
type GraphInput struct {
	CenterID         string  `json:"center_id,omitempty" jsonschema:"concept or document id to start from; empty returns the most frequent concepts"`
	Depth            int     `json:"depth,omitempty" jsonschema:"maximum hops from center_id (default 2)"`
	Limit            int     `json:"limit,omitempty" jsonschema:"maximum number of nodes (default 100)"`
	MinWeight        float64 `json:"min_weight,omitempty" jsonschema:"drop edges lighter than this"`
	IncludeDocuments bool    `json:"include_documents,omitempty" jsonschema:"include document nodes and CONTAINS edges"`
}

// GraphOutput is the output schema for the knowledge_graph tool.
type GraphOutput struct {
	Nodes []domain.GraphNode `json:"nodes"`
	Edges []domain.GraphEdge `json:"edges"`
}

// IndexInput is the input schema for the index_path tool.
type IndexInput struct {
	Path      string   `json:"path" jsonschema:"absolute path of a file or directory to index"`
	Recursive *bool    `json:"recursive,omitempty" jsonschema:"descend into subdirectories (default from config)"`
	Types     []string `json:"types,omitempty" jsonschema:"only index these document types"`
	Tags      []string `json:"tags,omitempty" jsonschema:"tags to attach to every indexed document"`
}

// IndexOutput is the output schema for the index_path tool.
type IndexOutput struct {
	DocumentID string `json:"document_id,omitempty"`
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Processed  int    `json:"processed"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search indexed documents by keyword, or by meaning when semantic is set",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get metadata, summary and concepts for an indexed document",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document_content",
		Description: "Get the full extracted text of an indexed document",
	}, s.handleGetDocumentContent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "similar_documents",
		Description: "Find documents similar to a given document",
	}, s.handleSimilarDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "knowledge_graph",
		Description: "Get a view of the concept graph built from indexed documents",
	}, s.handleKnowledgeGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_path",
		Description: "Index a file, or every supported file in a directory",
	}, s.handleIndexPath)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	types, err := domain.ParseDocumentTypes(input.Types)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	opts := domain.SearchOptions{
		Limit:             input.Limit,
		Offset:            input.Offset,
		UseSemanticSearch: input.Semantic,
		Types:             types,
		Tags:              input.Tags,
	}
	results, err := s.kb.SearchDocuments(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, toSearchOutput(results), nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	details, err := s.kb.GetDocumentDetails(ctx, input.DocumentID)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("document %s: %w", input.DocumentID, err)
	}

	return nil, DocumentOutput{
		ID:         details.ID,
		Title:      details.Title,
		Path:       details.Path,
		Type:       string(details.Type),
		Size:       details.Size,
		ChunkCount: details.ChunkCount,
		Concepts:   details.Concepts,
		Modified:   details.Modified.Format("2006-01-02 15:04:05"),
		Indexed:    details.Indexed.Format("2006-01-02 15:04:05"),
		Metadata:   details.Metadata,
	}, nil
}

// handleGetDocumentContent handles the get_document_content tool invocation.
func (s *Server) handleGetDocumentContent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, ContentOutput, error) {
	content, err := s.kb.GetDocumentContent(ctx, input.DocumentID)
	if err != nil {
		return nil, ContentOutput{}, fmt.Errorf("document %s: %w", input.DocumentID, err)
	}
	return nil, ContentOutput{DocumentID: input.DocumentID, Content: content}, nil
}

// handleSimilarDocuments handles the similar_documents tool invocation.
func (s *Server) handleSimilarDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SimilarInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.kb.GetSimilarDocuments(ctx, input.DocumentID, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("document %s: %w", input.DocumentID, err)
	}
	return nil, toSearchOutput(results), nil
}

// handleKnowledgeGraph handles the knowledge_graph tool invocation.
func (s *Server) handleKnowledgeGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GraphInput,
) (*mcp.CallToolResult, GraphOutput, error) {
	graph, err := s.kb.GetKnowledgeGraph(ctx, domain.GraphOptions{
		CenterID:         input.CenterID,
		Depth:            input.Depth,
		Limit:            input.Limit,
		MinWeight:        input.MinWeight,
		IncludeDocuments: input.IncludeDocuments,
	})
	if err != nil {
		return nil, GraphOutput{}, err
	}
	return nil, GraphOutput{Nodes: graph.Nodes, Edges: graph.Edges}, nil
}

// handleIndexPath handles the index_path tool invocation. Directory runs
// block until complete.
func (s *Server) handleIndexPath(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, IndexOutput{}, fmt.Errorf("path is required: %w", domain.ErrInvalidInput)
	}

	opts := s.kb.IndexOptions()
	if input.Recursive != nil {
		opts.Recursive = *input.Recursive
	}
	opts.Tags = input.Tags
	types, err := domain.ParseDocumentTypes(input.Types)
	if err != nil {
		return nil, IndexOutput{}, err
	}
	opts.Types = types

	info, err := os.Stat(input.Path)
	if err != nil {
		return nil, IndexOutput{}, domain.NewFileProcessingError(input.Path, err)
	}

	if !info.IsDir() {
		id, err := s.kb.IndexDocument(ctx, input.Path, opts)
		if err != nil {
			return nil, IndexOutput{}, err
		}
		return nil, IndexOutput{
			DocumentID: id,
			Status:     string(domain.StatusCompleted),
			Total:      1,
			Processed:  1,
		}, nil
	}

	progress, err := s.kb.IndexDirectory(ctx, input.Path, opts)
	if err != nil {
		return nil, IndexOutput{}, err
	}
	return nil, IndexOutput{
		Status:    string(progress.Status),
		Total:     progress.Total,
		Processed: progress.Processed,
		Failed:    progress.Failed,
		Error:     progress.Error,
	}, nil
}

func toSearchOutput(results []domain.SearchResult) SearchOutput {
	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			DocumentID: results[i].DocumentID,
			Title:      results[i].Title,
			Path:       results[i].Path,
			Type:       string(results[i].Type),
			Relevance:  results[i].Relevance,
			Snippet:    results[i].Snippet,
			MatchType:  string(results[i].Metadata.MatchType),
			Tags:       results[i].Metadata.Tags,
		}
	}
	return output
}
