// Package engine wires configuration, storage and AI adapters into the
// services behind driving.KnowledgeBase.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/kindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/kindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kindex/internal/adapters/driven/graph/neo4j"
	"github.com/custodia-labs/kindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kindex/internal/config"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
	"github.com/custodia-labs/kindex/internal/core/services"
	"github.com/custodia-labs/kindex/internal/extractors"
	"github.com/custodia-labs/kindex/internal/logger"
	"github.com/custodia-labs/kindex/internal/postprocessors"
)

// Ensure Engine implements the interface.
var _ driving.KnowledgeBase = (*Engine)(nil)

// Engine is a running knowledge base.
type Engine struct {
	cfg      *config.Config
	store    *sqlite.Store
	aiResult *ai.InitResult
	exporter *lazyExporter

	indexer   *services.Indexer
	watcher   *services.Watcher
	search    *services.SearchService
	documents *services.DocumentService
	graph     *services.GraphBuilder

	// background bounds runs started with StartIndexDirectory.
	background context.Context
	stop       context.CancelFunc
	closeOnce  sync.Once
}

// Status summarises the engine's configuration and index size.
type Status struct {
	DataDir          string   `json:"data_dir"`
	Database         string   `json:"database"`
	Documents        int      `json:"documents"`
	SemanticSearch   bool     `json:"semantic_search"`
	EmbeddingModel   string   `json:"embedding_model,omitempty"`
	LLMModel         string   `json:"llm_model,omitempty"`
	VectorBackend    string   `json:"vector_backend,omitempty"`
	ConceptGraph     bool     `json:"concept_graph"`
	Neo4jConfigured  bool     `json:"neo4j_configured"`
	WatchedPaths     []string `json:"watched_paths"`
	ProviderWarnings []string `json:"provider_warnings,omitempty"`
}

// Open builds an engine from cfg. AI providers that cannot be reached are
// dropped with a warning and the engine runs with reduced features.
func Open(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine: nil config: %w", domain.ErrInvalidInput)
	}

	logger.Section("Opening knowledge base")
	logger.Debug("Data directory: %s", cfg.DataDir)

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	prompts, err := file.NewPromptStore(cfg.PromptDir())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	docs := store.DocumentStore()
	aiResult := ai.Initialise(ctx, cfg.AppSettings, docs)

	pipelines := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(pipelines)

	var graphOpts []services.GraphBuilderOption
	graphOpts = append(graphOpts, services.WithSlicing(cfg.Graph.SliceChars, cfg.Graph.MaxSlices))

	var exporter *lazyExporter
	if cfg.Graph.Neo4jURI != "" {
		exporter = &lazyExporter{cfg: neo4j.Config{
			URI:      cfg.Graph.Neo4jURI,
			Username: cfg.Graph.Neo4jUser,
			Password: cfg.Graph.Neo4jPassword,
			Database: cfg.Graph.Neo4jDatabase,
		}}
		graphOpts = append(graphOpts, services.WithGraphExporter(exporter))
	}

	graph := services.NewGraphBuilder(store.GraphStore(), docs, aiResult.LLMService, prompts, graphOpts...)

	indexer := services.NewIndexer(services.IndexerDeps{
		Extractors:       extractors.NewDefaultRegistry(),
		Pipelines:        pipelines,
		Documents:        docs,
		VectorIndex:      aiResult.VectorIndex,
		EmbeddingService: aiResult.EmbeddingService,
		Enricher:         services.NewEnricher(aiResult.LLMService, prompts),
		Graph:            graph,
	})

	background, stop := context.WithCancel(context.Background())
	e := &Engine{
		cfg:      cfg,
		store:    store,
		aiResult: aiResult,
		exporter: exporter,
		indexer:  indexer,
		watcher:  services.NewWatcher(indexer),
		search: services.NewSearchService(
			docs, store.FullTextIndex(), aiResult.VectorIndex, aiResult.EmbeddingService),
		documents: services.NewDocumentService(docs, store.GraphStore(), aiResult.VectorIndex, indexer),
		graph:     graph,

		background: background,
		stop:       stop,
	}

	logger.Info("Knowledge base ready at %s", store.Path())
	return e, nil
}

// Close stops every watch and background run, waits for the files they
// are indexing, then releases storage and provider resources.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.stop()
		e.watcher.StopAll()
		e.indexer.Wait()
		e.aiResult.Close()
		if e.exporter != nil {
			err = e.exporter.Close(context.Background())
		}
		err = errors.Join(err, e.store.Close())
	})
	return err
}

// Warnings lists providers dropped during Open.
func (e *Engine) Warnings() []string {
	return append([]string(nil), e.aiResult.Warnings...)
}

// Config returns the configuration the engine was opened with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Status reports index size and provider availability.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	count, err := e.store.DocumentStore().CountDocuments(ctx)
	if err != nil {
		return Status{}, err
	}

	s := Status{
		DataDir:          e.cfg.DataDir,
		Database:         e.store.Path(),
		Documents:        count,
		SemanticSearch:   e.aiResult.EmbeddingService != nil && e.aiResult.VectorIndex != nil,
		ConceptGraph:     e.graph.CanExtract(),
		Neo4jConfigured:  e.exporter != nil,
		WatchedPaths:     e.watcher.WatchedPaths(),
		ProviderWarnings: e.Warnings(),
	}
	if e.aiResult.EmbeddingService != nil {
		s.EmbeddingModel = e.aiResult.EmbeddingService.ModelName()
		s.VectorBackend = string(e.cfg.Vector.Backend)
	}
	if e.aiResult.LLMService != nil {
		s.LLMModel = e.aiResult.LLMService.ModelName()
	}
	return s, nil
}

// IndexOptions returns options seeded from configured defaults.
func (e *Engine) IndexOptions() domain.IndexOptions {
	return domain.IndexOptionsFromSettings(e.cfg.Indexing)
}

// NewScheduler returns a scheduler that re-indexes roots every interval
// with the configured index options.
func (e *Engine) NewScheduler(interval time.Duration, roots []string) (*services.Scheduler, error) {
	return services.NewScheduler(e.indexer, interval, roots, e.IndexOptions())
}

// IndexDocument indexes a single file.
func (e *Engine) IndexDocument(ctx context.Context, path string, opts domain.IndexOptions) (string, error) {
	return e.indexer.IndexDocument(ctx, path, opts)
}

// IndexDirectory indexes every supported file under path.
func (e *Engine) IndexDirectory(
	ctx context.Context,
	path string,
	opts domain.IndexOptions,
) (domain.IndexingProgress, error) {
	return e.indexer.IndexDirectory(ctx, path, opts)
}

// StartIndexDirectory claims the indexer and indexes path in the
// background. The run outlives the caller; closing the engine stops it at
// the next batch boundary.
func (e *Engine) StartIndexDirectory(path string, opts domain.IndexOptions) error {
	if err := e.background.Err(); err != nil {
		return fmt.Errorf("engine closed: %w", err)
	}
	return e.indexer.StartDirectory(e.background, path, opts)
}

// GetIndexingProgress returns the current or last run's progress.
func (e *Engine) GetIndexingProgress() domain.IndexingProgress {
	return e.indexer.Progress()
}

// PauseIndexing pauses the running directory index.
func (e *Engine) PauseIndexing() bool {
	return e.indexer.Pause()
}

// ResumeIndexing resumes a paused directory index.
func (e *Engine) ResumeIndexing() bool {
	return e.indexer.Resume()
}

// WatchDirectory keeps path indexed as files change.
func (e *Engine) WatchDirectory(ctx context.Context, path string, opts domain.IndexOptions) error {
	return e.watcher.Watch(ctx, path, opts)
}

// StopWatching stops the watch on path.
func (e *Engine) StopWatching(path string) bool {
	return e.watcher.Stop(path)
}

// StopAllWatching stops every watch.
func (e *Engine) StopAllWatching() {
	e.watcher.StopAll()
}

// WatchedPaths lists watched directories.
func (e *Engine) WatchedPaths() []string {
	return e.watcher.WatchedPaths()
}

// SearchDocuments runs a lexical or semantic search.
func (e *Engine) SearchDocuments(
	ctx context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	return e.search.Search(ctx, query, opts)
}

// ListDocuments lists indexed documents.
func (e *Engine) ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	return e.documents.List(ctx, filter)
}

// GetDocument returns a document or nil when it does not exist.
func (e *Engine) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return e.documents.Get(ctx, id)
}

// GetDocumentDetails returns a document with derived metadata.
func (e *Engine) GetDocumentDetails(ctx context.Context, id string) (*driving.DocumentDetails, error) {
	return e.documents.GetDetails(ctx, id)
}

// GetDocumentContent returns a document's full text.
func (e *Engine) GetDocumentContent(ctx context.Context, id string) (string, error) {
	return e.documents.GetContent(ctx, id)
}

// DeleteDocument removes a document from every store.
func (e *Engine) DeleteDocument(ctx context.Context, id string) (bool, error) {
	return e.documents.Delete(ctx, id)
}

// GetSimilarDocuments ranks documents similar to id.
func (e *Engine) GetSimilarDocuments(ctx context.Context, id string, limit int) ([]domain.SearchResult, error) {
	return e.documents.GetSimilar(ctx, id, limit)
}

// OpenDocument opens the document's file with the system handler.
func (e *Engine) OpenDocument(ctx context.Context, id string) error {
	return e.documents.Open(ctx, id)
}

// GetKnowledgeGraph returns a concept graph view.
func (e *Engine) GetKnowledgeGraph(ctx context.Context, opts domain.GraphOptions) (*domain.KnowledgeGraph, error) {
	return e.graph.GetKnowledgeGraph(ctx, opts)
}

// ExportGraph mirrors a graph view into Neo4j.
func (e *Engine) ExportGraph(ctx context.Context, opts domain.GraphOptions) (*domain.KnowledgeGraph, error) {
	return e.graph.Export(ctx, opts)
}

// lazyExporter connects to Neo4j on first export so that opening the
// engine never blocks on an unreachable graph database.
type lazyExporter struct {
	cfg neo4j.Config

	mu       sync.Mutex
	exporter *neo4j.Exporter
}

var _ driven.GraphExporter = (*lazyExporter)(nil)

func (l *lazyExporter) Export(ctx context.Context, graph *domain.KnowledgeGraph) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.exporter == nil {
		exporter, err := neo4j.New(ctx, l.cfg)
		if err != nil {
			return err
		}
		l.exporter = exporter
	}
	return l.exporter.Export(ctx, graph)
}

func (l *lazyExporter) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.exporter == nil {
		return nil
	}
	err := l.exporter.Close(ctx)
	l.exporter = nil
	return err
}
