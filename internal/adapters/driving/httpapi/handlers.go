package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
	"github.com/custodia-labs/kindex/internal/logger"
)

// DocumentResponse is the JSON form of a document.
type DocumentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	Type      string    `json:"type"`
	Size      int64     `json:"size"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
	Indexed   time.Time `json:"indexed"`
	Author    string    `json:"author,omitempty"`
	Tags      []string  `json:"tags"`
	Summary   string    `json:"summary,omitempty"`
	KeyPoints []string  `json:"key_points,omitempty"`
	PageCount int       `json:"page_count,omitempty"`
	WordCount int       `json:"word_count"`
}

// DetailsResponse is the JSON form of document details.
type DetailsResponse struct {
	DocumentResponse
	ChunkCount int      `json:"chunk_count"`
	Concepts   []string `json:"concepts"`
}

// SearchResultResponse is the JSON form of a search hit.
type SearchResultResponse struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Path       string    `json:"path"`
	Type       string    `json:"type"`
	Relevance  float64   `json:"relevance"`
	Snippet    string    `json:"snippet"`
	ChunkIndex int       `json:"chunk_index"`
	MatchType  string    `json:"match_type"`
	Modified   time.Time `json:"modified"`
	Tags       []string  `json:"tags"`
}

// ProgressResponse is the JSON form of indexing progress.
type ProgressResponse struct {
	RunID       string     `json:"run_id,omitempty"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Processed   int        `json:"processed"`
	Failed      int        `json:"failed"`
	Percent     float64    `json:"percent"`
	CurrentFile string     `json:"current_file,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// IndexRequest is the request body for POST /api/index.
type IndexRequest struct {
	Path      string   `json:"path"`
	Recursive *bool    `json:"recursive,omitempty"`
	Types     []string `json:"types,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	MaxFiles  int      `json:"max_files,omitempty"`
}

// WatchRequest is the request body for POST /api/watches.
type WatchRequest struct {
	Path      string `json:"path"`
	Recursive *bool  `json:"recursive,omitempty"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"indexing": s.kb.GetIndexingProgress().Status,
		"watches":  len(s.kb.WatchedPaths()),
	})
}

// Search handles GET /api/search?q=...
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts, err := searchOptions(query)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := s.kb.SearchDocuments(r.Context(), query.Get("q"), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query.Get("q"),
		"results": toSearchResults(results),
		"count":   len(results),
	})
}

// ListDocuments handles GET /api/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	types, err := domain.ParseDocumentTypes(listParam(query, "types"))
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := intParam(query, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := intParam(query, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	docs, err := s.kb.ListDocuments(r.Context(), domain.DocumentFilter{
		Types:  types,
		Tags:   listParam(query, "tags"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = toDocument(&docs[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": out,
		"count":     len(out),
	})
}

// GetDocument handles GET /api/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.kb.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if doc == nil {
		writeError(w, fmt.Errorf("document %s: %w", id, domain.ErrNotFound))
		return
	}

	details, err := s.kb.GetDocumentDetails(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDetails(doc, details))
}

// DeleteDocument handles DELETE /api/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := s.kb.DeleteDocument(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeError(w, fmt.Errorf("document %s: %w", id, domain.ErrNotFound))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// GetDocumentContent handles GET /api/documents/{id}/content.
func (s *Server) GetDocumentContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.kb.GetDocumentContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

// GetSimilarDocuments handles GET /api/documents/{id}/similar.
func (s *Server) GetSimilarDocuments(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit", domain.DefaultSearchLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	results, err := s.kb.GetSimilarDocuments(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id,
		"results":     toSearchResults(results),
		"count":       len(results),
	})
}

// GetGraph handles GET /api/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := domain.GraphOptions{CenterID: query.Get("center")}

	var err error
	if opts.Depth, err = intParam(query, "depth", 0); err != nil {
		writeError(w, err)
		return
	}
	if opts.Limit, err = intParam(query, "limit", 0); err != nil {
		writeError(w, err)
		return
	}
	if opts.MinWeight, err = floatParam(query, "min_weight"); err != nil {
		writeError(w, err)
		return
	}
	if opts.IncludeDocuments, err = boolParam(query, "documents"); err != nil {
		writeError(w, err)
		return
	}

	graph, err := s.kb.GetKnowledgeGraph(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

// Index handles POST /api/index. Files are indexed synchronously and
// directories in the background; poll /api/progress for the latter.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("decoding request: %w: %w", domain.ErrInvalidInput, err))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, fmt.Errorf("path is required: %w", domain.ErrInvalidInput))
		return
	}

	opts := s.kb.IndexOptions()
	if req.Recursive != nil {
		opts.Recursive = *req.Recursive
	}
	if req.MaxFiles > 0 {
		opts.MaxFiles = req.MaxFiles
	}
	opts.Tags = req.Tags
	types, err := domain.ParseDocumentTypes(req.Types)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Types = types

	info, err := os.Stat(req.Path)
	if err != nil {
		writeError(w, domain.NewFileProcessingError(req.Path, err))
		return
	}

	if !info.IsDir() {
		id, err := s.kb.IndexDocument(r.Context(), req.Path, opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document_id": id})
		return
	}

	if err := s.kb.StartIndexDirectory(req.Path, opts); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"path": req.Path, "status": "started"})
}

// GetProgress handles GET /api/progress.
func (s *Server) GetProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toProgress(s.kb.GetIndexingProgress()))
}

// PauseIndexing handles POST /api/progress/pause.
func (s *Server) PauseIndexing(w http.ResponseWriter, _ *http.Request) {
	ok := s.kb.PauseIndexing()
	writeJSON(w, http.StatusOK, map[string]any{"paused": ok, "progress": toProgress(s.kb.GetIndexingProgress())})
}

// ResumeIndexing handles POST /api/progress/resume.
func (s *Server) ResumeIndexing(w http.ResponseWriter, _ *http.Request) {
	ok := s.kb.ResumeIndexing()
	writeJSON(w, http.StatusOK, map[string]any{"resumed": ok, "progress": toProgress(s.kb.GetIndexingProgress())})
}

// ListWatches handles GET /api/watches.
func (s *Server) ListWatches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"paths": s.kb.WatchedPaths()})
}

// StartWatch handles POST /api/watches. The watch outlives the request.
func (s *Server) StartWatch(w http.ResponseWriter, r *http.Request) {
	var req WatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("decoding request: %w: %w", domain.ErrInvalidInput, err))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, fmt.Errorf("path is required: %w", domain.ErrInvalidInput))
		return
	}

	opts := s.kb.IndexOptions()
	if req.Recursive != nil {
		opts.Recursive = *req.Recursive
	}

	if err := s.kb.WatchDirectory(context.WithoutCancel(r.Context()), req.Path, opts); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"path": req.Path, "watching": true})
}

// StopWatch handles DELETE /api/watches?path=... and stops every watch
// when path is omitted.
func (s *Server) StopWatch(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.kb.StopAllWatching()
		writeJSON(w, http.StatusOK, map[string]any{"stopped": true})
		return
	}

	if !s.kb.StopWatching(path) {
		writeError(w, fmt.Errorf("watch %s: %w", path, domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "stopped": true})
}

func searchOptions(query map[string][]string) (domain.SearchOptions, error) {
	var (
		opts domain.SearchOptions
		err  error
	)
	if opts.Limit, err = intParam(query, "limit", domain.DefaultSearchLimit); err != nil {
		return opts, err
	}
	if opts.Offset, err = intParam(query, "offset", 0); err != nil {
		return opts, err
	}
	if opts.UseSemanticSearch, err = boolParam(query, "semantic"); err != nil {
		return opts, err
	}
	if opts.MinRelevance, err = floatParam(query, "min_relevance"); err != nil {
		return opts, err
	}
	if opts.Types, err = domain.ParseDocumentTypes(listParam(query, "types")); err != nil {
		return opts, err
	}
	opts.Tags = listParam(query, "tags")
	if opts.DateFrom, err = timeParam(query, "from"); err != nil {
		return opts, err
	}
	if opts.DateTo, err = timeParam(query, "to"); err != nil {
		return opts, err
	}
	return opts, nil
}

func first(query map[string][]string, name string) string {
	if v := query[name]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// listParam accepts both repeated parameters and comma-separated values.
func listParam(query map[string][]string, name string) []string {
	var out []string
	for _, v := range query[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(query map[string][]string, name string, def int) (int, error) {
	raw := first(query, name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, domain.ErrInvalidInput)
	}
	return n, nil
}

func floatParam(query map[string][]string, name string) (float64, error) {
	raw := first(query, name)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, domain.ErrInvalidInput)
	}
	return f, nil
}

func boolParam(query map[string][]string, name string) (bool, error) {
	raw := first(query, name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", name, raw, domain.ErrInvalidInput)
	}
	return b, nil
}

// timeParam accepts RFC 3339 timestamps or plain dates.
func timeParam(query map[string][]string, name string) (*time.Time, error) {
	raw := first(query, name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s %q: %w", name, raw, domain.ErrInvalidInput)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrIndexingInProgress), errors.Is(err, domain.ErrAlreadyWatching):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrVectorIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encoding response: %v", err)
	}
}

func toDocument(doc *domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		Path:      doc.Path,
		Type:      string(doc.Type),
		Size:      doc.Size,
		Created:   doc.Created,
		Modified:  doc.Modified,
		Indexed:   doc.Indexed,
		Author:    doc.Author,
		Tags:      nonNil([]string(doc.Tags)),
		Summary:   doc.Summary,
		KeyPoints: doc.KeyPoints,
		PageCount: doc.PageCount,
		WordCount: doc.WordCount,
	}
}

func toDetails(doc *domain.Document, details *driving.DocumentDetails) DetailsResponse {
	return DetailsResponse{
		DocumentResponse: toDocument(doc),
		ChunkCount:       details.ChunkCount,
		Concepts:         nonNil(details.Concepts),
	}
}

func toSearchResults(results []domain.SearchResult) []SearchResultResponse {
	out := make([]SearchResultResponse, len(results))
	for i := range results {
		r := &results[i]
		out[i] = SearchResultResponse{
			DocumentID: r.DocumentID,
			Title:      r.Title,
			Path:       r.Path,
			Type:       string(r.Type),
			Relevance:  r.Relevance,
			Snippet:    r.Snippet,
			ChunkIndex: r.Metadata.ChunkIndex,
			MatchType:  string(r.Metadata.MatchType),
			Modified:   r.Metadata.Modified,
			Tags:       nonNil([]string(r.Metadata.Tags)),
		}
	}
	return out
}

func toProgress(p domain.IndexingProgress) ProgressResponse {
	return ProgressResponse{
		RunID:       p.RunID,
		Status:      string(p.Status),
		Total:       p.Total,
		Processed:   p.Processed,
		Failed:      p.Failed,
		Percent:     p.Percent(),
		CurrentFile: p.CurrentFile,
		Error:       p.Error,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
