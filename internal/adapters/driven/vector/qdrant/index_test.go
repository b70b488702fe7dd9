package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// fakeQdrant records requests and answers like a minimal Qdrant server.
type fakeQdrant struct {
	mu       sync.Mutex
	exists   bool
	requests []string
	bodies   map[string]map[string]any
}

func newFakeQdrant(exists bool) *fakeQdrant {
	return &fakeQdrant{exists: exists, bodies: map[string]map[string]any{}}
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)
	if r.Header.Get("api-key") != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies[key] = body

	switch key {
	case "GET /collections/chunks":
		if !f.exists {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
	case "PUT /collections/chunks":
		f.exists = true
	case "POST /collections/chunks/points/search":
		_, _ = w.Write([]byte(`{"result":[
			{"id":"c2","score":0.91,"payload":{"document_id":"d2","chunk_index":3,"type":"pdf"}},
			{"id":"c1","score":0.42,"payload":{"document_id":"d1","chunk_index":0,"type":"text"}}
		]}`))
		return
	}
	_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
}

func newTestIndex(t *testing.T, fake *fakeQdrant) *Index {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return New(Config{BaseURL: server.URL, APIKey: "secret", Collection: "chunks", Dimensions: 4})
}

func TestIndex_Init_CreatesCollection(t *testing.T) {
	fake := newFakeQdrant(false)
	idx := newTestIndex(t, fake)

	require.NoError(t, idx.Init(context.Background()))
	assert.Contains(t, fake.requests, "PUT /collections/chunks")
	assert.Contains(t, fake.requests, "PUT /collections/chunks/index")

	vectors := fake.bodies["PUT /collections/chunks"]["vectors"].(map[string]any)
	assert.Equal(t, "Cosine", vectors["distance"])
	assert.Equal(t, float64(4), vectors["size"])
}

func TestIndex_Init_ExistingCollection(t *testing.T) {
	fake := newFakeQdrant(true)
	idx := newTestIndex(t, fake)

	require.NoError(t, idx.Init(context.Background()))
	assert.Equal(t, []string{"GET /collections/chunks"}, fake.requests)
}

func TestIndex_UpsertAndDelete(t *testing.T) {
	fake := newFakeQdrant(true)
	idx := newTestIndex(t, fake)
	ctx := context.Background()

	err := idx.Upsert(ctx, "c1", []float32{1, 0, 0, 0}, driven.VectorMetadata{
		DocumentID: "d1", ChunkIndex: 2, Type: domain.DocumentTypeMarkdown,
	})
	require.NoError(t, err)

	points := fake.bodies["PUT /collections/chunks/points"]["points"].([]any)
	require.Len(t, points, 1)
	payload := points[0].(map[string]any)["payload"].(map[string]any)
	assert.Equal(t, "d1", payload["document_id"])
	assert.Equal(t, "markdown", payload["type"])

	require.NoError(t, idx.DeleteMany(ctx, []string{"c1", "c2"}))
	deleted := fake.bodies["POST /collections/chunks/points/delete"]["points"].([]any)
	assert.Len(t, deleted, 2)

	// Nothing to delete means no request.
	before := len(fake.requests)
	require.NoError(t, idx.DeleteMany(ctx, nil))
	assert.Len(t, fake.requests, before)
}

func TestIndex_Query(t *testing.T) {
	fake := newFakeQdrant(true)
	idx := newTestIndex(t, fake)

	matches, err := idx.Query(context.Background(), []float32{1, 0, 0, 0}, driven.VectorQuery{
		TopK:              5,
		Types:             []domain.DocumentType{domain.DocumentTypePDF, domain.DocumentTypeText},
		ExcludeDocumentID: "d9",
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "c2", matches[0].ID)
	assert.Equal(t, "d2", matches[0].DocumentID)
	assert.Equal(t, 3, matches[0].ChunkIndex)
	assert.InDelta(t, 0.91, matches[0].Score, 1e-9)

	body := fake.bodies["POST /collections/chunks/points/search"]
	assert.Equal(t, float64(5), body["limit"])
	f := body["filter"].(map[string]any)
	must := f["must"].([]any)[0].(map[string]any)
	assert.Equal(t, "type", must["key"])
	assert.Equal(t, []any{"pdf", "text"}, must["match"].(map[string]any)["any"])
	mustNot := f["must_not"].([]any)[0].(map[string]any)
	assert.Equal(t, "d9", mustNot["match"].(map[string]any)["value"])
}

func TestIndex_ErrorsAreUnavailable(t *testing.T) {
	fake := newFakeQdrant(true)
	server := httptest.NewServer(fake)
	defer server.Close()

	idx := New(Config{BaseURL: server.URL, APIKey: "wrong", Collection: "chunks"})
	_, err := idx.Query(context.Background(), []float32{1}, driven.VectorQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	_, err = idx.Query(context.Background(), nil, driven.VectorQuery{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildFilter_Empty(t *testing.T) {
	assert.Nil(t, buildFilter(driven.VectorQuery{}))
}
