// Package qdrant provides a vector index backed by a Qdrant collection
// over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:6333"
	DefaultTimeout = 30 * time.Second
)

// Payload keys stored alongside each point.
const (
	payloadDocumentID = "document_id"
	payloadChunkIndex = "chunk_index"
	payloadType       = "type"
)

// Config holds configuration for the Qdrant index.
type Config struct {
	// BaseURL is the Qdrant REST endpoint (default: http://localhost:6333).
	BaseURL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection holding chunk vectors.
	Collection string

	// Dimensions is the vector size used when creating the collection.
	Dimensions int

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Index stores chunk vectors in a Qdrant collection using cosine distance.
type Index struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	dimensions int
}

// New creates a Qdrant index. Call Init before use.
func New(cfg Config) *Index {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Collection == "" {
		cfg.Collection = domain.DefaultQdrantCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Index{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type condition struct {
	Key   string `json:"key"`
	Match match  `json:"match"`
}

type match struct {
	Value any      `json:"value,omitempty"`
	Any   []string `json:"any,omitempty"`
}

type filter struct {
	Must    []condition `json:"must,omitempty"`
	MustNot []condition `json:"must_not,omitempty"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	Offset      int       `json:"offset,omitempty"`
	WithPayload bool      `json:"with_payload"`
	Filter      *filter   `json:"filter,omitempty"`
}

type searchResponse struct {
	Result []struct {
		ID      any     `json:"id"`
		Score   float64 `json:"score"`
		Payload struct {
			DocumentID string `json:"document_id"`
			ChunkIndex int    `json:"chunk_index"`
		} `json:"payload"`
	} `json:"result"`
}

// Init creates the collection when it does not exist.
func (idx *Index) Init(ctx context.Context) error {
	status, _, err := idx.do(ctx, http.MethodGet, idx.collectionPath(""), nil)
	if err == nil {
		return nil
	}
	if status != http.StatusNotFound {
		return err
	}
	if idx.dimensions <= 0 {
		return fmt.Errorf("qdrant: creating collection %s: unknown vector size: %w",
			idx.collection, domain.ErrInvalidInput)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     idx.dimensions,
			"distance": "Cosine",
		},
	}
	if _, _, err := idx.do(ctx, http.MethodPut, idx.collectionPath(""), body); err != nil {
		return err
	}

	index := map[string]any{"field_name": payloadDocumentID, "field_schema": "keyword"}
	_, _, err = idx.do(ctx, http.MethodPut, idx.collectionPath("/index?wait=true"), index)
	return err
}

// Upsert inserts or replaces the point for a chunk.
func (idx *Index) Upsert(ctx context.Context, id string, vector []float32, meta driven.VectorMetadata) error {
	body := map[string]any{
		"points": []point{{
			ID:     id,
			Vector: vector,
			Payload: map[string]any{
				payloadDocumentID: meta.DocumentID,
				payloadChunkIndex: meta.ChunkIndex,
				payloadType:       string(meta.Type),
			},
		}},
	}
	_, _, err := idx.do(ctx, http.MethodPut, idx.collectionPath("/points?wait=true"), body)
	return err
}

// Query searches the collection, best match first.
func (idx *Index) Query(ctx context.Context, vector []float32, q driven.VectorQuery) ([]driven.VectorMatch, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector: %w", domain.ErrInvalidInput)
	}

	limit := q.TopK
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	req := searchRequest{
		Vector:      vector,
		Limit:       limit,
		Offset:      max(q.Offset, 0),
		WithPayload: true,
		Filter:      buildFilter(q),
	}

	_, data, err := idx.do(ctx, http.MethodPost, idx.collectionPath("/points/search"), req)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("qdrant: decode search response: %w", err)
	}

	matches := make([]driven.VectorMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, driven.VectorMatch{
			ID:         fmt.Sprint(r.ID),
			DocumentID: r.Payload.DocumentID,
			ChunkIndex: r.Payload.ChunkIndex,
			Score:      r.Score,
		})
	}
	return matches, nil
}

// DeleteMany removes points by chunk ID.
func (idx *Index) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	_, _, err := idx.do(ctx, http.MethodPost, idx.collectionPath("/points/delete?wait=true"), body)
	return err
}

// Close releases idle connections.
func (idx *Index) Close() error {
	idx.client.CloseIdleConnections()
	return nil
}

func buildFilter(q driven.VectorQuery) *filter {
	var f filter
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		f.Must = append(f.Must, condition{Key: payloadType, Match: match{Any: types}})
	}
	if q.ExcludeDocumentID != "" {
		f.MustNot = append(f.MustNot, condition{Key: payloadDocumentID, Match: match{Value: q.ExcludeDocumentID}})
	}
	if len(f.Must) == 0 && len(f.MustNot) == 0 {
		return nil
	}
	return &f
}

func (idx *Index) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(idx.collection) + suffix
}

// do sends a JSON request and returns the status and body.
// Non-2xx responses are reported as ErrVectorIndexUnavailable.
func (idx *Index) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("qdrant: marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, idx.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idx.apiKey != "" {
		req.Header.Set("api-key", idx.apiKey)
	}

	resp, err := idx.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: qdrant: send request: %v", domain.ErrVectorIndexUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("qdrant: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, data, fmt.Errorf("%w: qdrant %s %s (status %d): %s",
			domain.ErrVectorIndexUnavailable, method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return resp.StatusCode, data, nil
}
