package services

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
	"github.com/custodia-labs/kindex/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// documentRemover deletes a document from every store.
type documentRemover interface {
	DeleteDocument(ctx context.Context, documentID string) (bool, error)
}

// DocumentService reads and removes indexed documents.
type DocumentService struct {
	docStore    driven.DocumentStore
	graph       driven.GraphStore
	vectorIndex driven.VectorIndex
	remover     documentRemover

	// opener launches the system handler for a path. Replaced in tests.
	opener func(path string) error
}

// NewDocumentService creates a new document service.
// The vectorIndex parameter is optional (can be nil).
func NewDocumentService(
	docStore driven.DocumentStore,
	graph driven.GraphStore,
	vectorIndex driven.VectorIndex,
	remover documentRemover,
) *DocumentService {
	return &DocumentService{
		docStore:    docStore,
		graph:       graph,
		vectorIndex: vectorIndex,
		remover:     remover,
		opener:      openPath,
	}
}

// List returns documents matching the filter.
func (s *DocumentService) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx, filter)
}

// Get retrieves a document by ID. Returns nil, nil when absent.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetContent returns the document text reassembled from its chunks, or the
// stored full text when the document has no chunks.
func (s *DocumentService) GetContent(ctx context.Context, documentID string) (string, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}

	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return doc.Content, nil
	}
	return domain.ReassembleChunks(chunks), nil
}

// GetDetails returns metadata for display.
func (s *DocumentService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chunkCount := 0
	if chunkIDs, err := s.docStore.ChunkIDs(ctx, documentID); err == nil {
		chunkCount = len(chunkIDs)
	}

	var concepts []string
	if s.graph != nil {
		found, err := s.graph.ConceptsForDocument(ctx, documentID)
		if err != nil {
			logger.Warn("concepts for %s: %v", documentID, err)
		}
		for _, c := range found {
			concepts = append(concepts, c.Name)
		}
	}

	metadata := make(map[string]string)
	if doc.Author != "" {
		metadata["author"] = doc.Author
	}
	if len(doc.Tags) > 0 {
		metadata["tags"] = strings.Join(doc.Tags, ", ")
	}
	if doc.PageCount > 0 {
		metadata["pages"] = strconv.Itoa(doc.PageCount)
	}
	if doc.WordCount > 0 {
		metadata["words"] = strconv.Itoa(doc.WordCount)
	}
	if doc.Summary != "" {
		metadata["summary"] = doc.Summary
	}
	if len(doc.KeyPoints) > 0 {
		metadata["key_points"] = strings.Join(doc.KeyPoints, "; ")
	}

	return &driving.DocumentDetails{
		ID:         doc.ID,
		Title:      doc.Title,
		Path:       doc.Path,
		Type:       doc.Type,
		Size:       doc.Size,
		ChunkCount: chunkCount,
		Concepts:   concepts,
		Created:    doc.Created,
		Modified:   doc.Modified,
		Indexed:    doc.Indexed,
		Metadata:   metadata,
	}, nil
}

// Delete removes a document everywhere. Returns false if it was absent.
func (s *DocumentService) Delete(ctx context.Context, documentID string) (bool, error) {
	return s.remover.DeleteDocument(ctx, documentID)
}

// GetSimilar ranks documents by the similarity of their chunk embeddings to
// the mean embedding of documentID. Documents indexed without embeddings
// fall back to ranking by shared concepts.
func (s *DocumentService) GetSimilar(
	ctx context.Context, documentID string, limit int,
) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if centroid := meanEmbedding(chunks); centroid != nil && s.vectorIndex != nil {
		results, err := s.similarByVector(ctx, documentID, centroid, limit)
		if err == nil && len(results) > 0 {
			return results, nil
		}
		if err != nil {
			logger.Warn("vector similarity for %s: %v", documentID, err)
		}
	}

	return s.similarByConcepts(ctx, documentID, limit)
}

func (s *DocumentService) similarByVector(
	ctx context.Context, documentID string, centroid []float32, limit int,
) ([]domain.SearchResult, error) {
	matches, err := s.vectorIndex.Query(ctx, centroid, driven.VectorQuery{
		TopK:              limit * semanticOverFetch,
		ExcludeDocumentID: documentID,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var results []domain.SearchResult
	for _, m := range matches {
		if len(results) == limit {
			break
		}
		if _, ok := seen[m.DocumentID]; ok {
			continue
		}
		seen[m.DocumentID] = struct{}{}

		doc, err := s.docStore.GetDocument(ctx, m.DocumentID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, newResult(doc, m.Score, Snippet(doc.Summary, ""), m.ChunkIndex, domain.MatchSemantic))
	}
	return results, nil
}

func (s *DocumentService) similarByConcepts(
	ctx context.Context, documentID string, limit int,
) ([]domain.SearchResult, error) {
	if s.graph == nil {
		return []domain.SearchResult{}, nil
	}
	own, err := s.graph.ConceptsForDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(own) == 0 {
		return []domain.SearchResult{}, nil
	}

	shared, err := s.graph.DocumentsSharingConcepts(ctx, documentID, limit)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(shared))
	for _, sc := range shared {
		doc, err := s.docStore.GetDocument(ctx, sc.DocumentID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		relevance := float64(sc.Shared) / float64(len(own))
		results = append(results, newResult(doc, relevance, Snippet(doc.Summary, ""), 0, domain.MatchConcept))
	}
	return results, nil
}

// meanEmbedding averages the embeddings of chunks that carry one.
func meanEmbedding(chunks []domain.Chunk) []float32 {
	var (
		sum   []float64
		count int
	)
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(c.Embedding))
		}
		if len(c.Embedding) != len(sum) {
			continue
		}
		for i, v := range c.Embedding {
			sum[i] += float64(v)
		}
		count++
	}
	if count == 0 {
		return nil
	}
	mean := make([]float32, len(sum))
	for i, v := range sum {
		mean[i] = float32(v / float64(count))
	}
	return mean
}

// Open opens the document's file in the default application.
func (s *DocumentService) Open(ctx context.Context, documentID string) error {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	return s.opener(doc.Path)
}

// openPath opens a path using the system default handler.
func openPath(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
