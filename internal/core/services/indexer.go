package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
	"github.com/custodia-labs/kindex/internal/ids"
	"github.com/custodia-labs/kindex/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexingService = (*Indexer)(nil)

// Indexer ingests files: extract, enrich, chunk, embed, store, graph.
type Indexer struct {
	extractors driven.ExtractorRegistry
	pipelines  driven.PipelineBuilder
	docStore   driven.DocumentStore

	// Optional collaborators. Nil disables the matching step.
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	enricher         *Enricher
	graph            *GraphBuilder

	docLocks *keyedMutex

	// Directory run state
	cbMu     sync.Mutex
	mu       sync.Mutex
	progress domain.IndexingProgress
	running  bool
	paused   bool
	resume   chan struct{}

	background sync.WaitGroup
}

// IndexerDeps groups the collaborators of an Indexer.
type IndexerDeps struct {
	Extractors driven.ExtractorRegistry
	Pipelines  driven.PipelineBuilder
	Documents  driven.DocumentStore

	VectorIndex      driven.VectorIndex
	EmbeddingService driven.EmbeddingService
	Enricher         *Enricher
	Graph            *GraphBuilder
}

// NewIndexer creates an indexer.
func NewIndexer(deps IndexerDeps) *Indexer {
	return &Indexer{
		extractors:       deps.Extractors,
		pipelines:        deps.Pipelines,
		docStore:         deps.Documents,
		vectorIndex:      deps.VectorIndex,
		embeddingService: deps.EmbeddingService,
		enricher:         deps.Enricher,
		graph:            deps.Graph,
		docLocks:         newKeyedMutex(),
		progress:         domain.IndexingProgress{Status: domain.StatusIdle},
	}
}

// semanticEnabled reports whether embeddings can be generated and stored.
func (i *Indexer) semanticEnabled() bool {
	return i.embeddingService != nil && i.vectorIndex != nil
}

// IndexDocument extracts, chunks, embeds and stores one file.
func (i *Indexer) IndexDocument(ctx context.Context, path string, opts domain.IndexOptions) (string, error) {
	opts = opts.WithDefaults()
	path = ids.CanonicalPath(path)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.NewFileProcessingError(path, domain.ErrNotFound)
		}
		return "", domain.NewFileProcessingError(path, err)
	}
	if info.IsDir() {
		return "", domain.NewFileProcessingError(path, fmt.Errorf("is a directory: %w", domain.ErrInvalidInput))
	}

	docType, err := i.extractors.DetectType(path)
	if err != nil {
		return "", domain.NewFileProcessingError(path, err)
	}
	if len(opts.Types) > 0 && !domain.ContainsType(opts.Types, docType) {
		return "", domain.NewFileProcessingError(path,
			fmt.Errorf("type %s excluded by filter: %w", docType, domain.ErrUnsupportedType))
	}

	docID := ids.Document(path)
	unlock := i.docLocks.Lock(docID)
	defer unlock()

	logger.Debug("indexing %s (%s)", path, docType)

	extraction, err := i.extractors.Extract(ctx, path)
	if err != nil {
		return "", err
	}

	doc := buildDocument(docID, path, info, docType, extraction, opts.Tags)

	if opts.GenerateSummary && i.enricher.Available() {
		i.enrich(ctx, doc)
	}

	pipeline, err := i.pipelines.Pipeline(domain.ChunkingPipelineConfig(opts.ChunkSize, opts.ChunkOverlapWords))
	if err != nil {
		return "", &domain.KnowledgeBaseError{Op: "build pipeline", Err: err}
	}
	chunks, err := pipeline.Process(ctx, doc)
	if err != nil {
		return "", domain.NewFileProcessingError(path, fmt.Errorf("chunking: %w", err))
	}

	if opts.GenerateEmbeddings && i.semanticEnabled() {
		i.embedChunks(ctx, path, chunks)
	}

	staleIDs, err := i.docStore.ChunkIDs(ctx, docID)
	if err != nil {
		return "", err
	}

	if err := i.docStore.SaveDocument(ctx, doc, chunks); err != nil {
		return "", err
	}

	if i.vectorIndex != nil {
		i.syncVectors(ctx, doc, chunks, staleIDs)
	}

	if opts.ExtractConcepts && i.graph.CanExtract() {
		if _, err := i.graph.Extract(ctx, doc, chunks); err != nil {
			logger.Warn("concept extraction for %s: %v", path, err)
		}
	}

	logger.Debug("indexed %s: %d chunks", path, len(chunks))
	return docID, nil
}

func buildDocument(
	id, path string,
	info fs.FileInfo,
	docType domain.DocumentType,
	extraction *domain.Extraction,
	extraTags []string,
) *domain.Document {
	meta := extraction.Metadata
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	wordCount := meta.WordCount
	if wordCount == 0 {
		wordCount = len(strings.Fields(extraction.Text))
	}

	tags := append(append([]string{}, meta.Tags...), extraTags...)

	return &domain.Document{
		ID:        id,
		Title:     title,
		Path:      path,
		Type:      docType,
		Size:      info.Size(),
		Modified:  info.ModTime().UTC(),
		Indexed:   time.Now().UTC(),
		Author:    meta.Author,
		Tags:      domain.NormaliseTags(tags),
		PageCount: meta.PageCount,
		WordCount: wordCount,
		Content:   extraction.Text,
	}
}

// enrich adds a summary and key points. Failures are logged only.
func (i *Indexer) enrich(ctx context.Context, doc *domain.Document) {
	if strings.TrimSpace(doc.Content) == "" {
		return
	}
	summary, err := i.enricher.Summarise(ctx, doc.Content)
	if err != nil {
		logger.Warn("summary for %s: %v", doc.Path, err)
	} else {
		doc.Summary = summary
	}

	points, err := i.enricher.KeyPoints(ctx, doc.Content)
	if err != nil {
		logger.Warn("key points for %s: %v", doc.Path, err)
	} else {
		doc.KeyPoints = points
	}
}

// embedChunks attaches embeddings in place with one batch call per document.
// When the batch fails each chunk is retried alone; a chunk whose embedding
// still fails stays lexically searchable.
func (i *Indexer) embedChunks(ctx context.Context, path string, chunks []domain.Chunk) {
	if len(chunks) == 0 {
		return
	}
	texts := make([]string, len(chunks))
	for j, c := range chunks {
		texts[j] = c.Content
	}
	vecs, err := i.embeddingService.EmbedBatch(ctx, texts)
	if err == nil && len(vecs) == len(chunks) {
		for j := range chunks {
			chunks[j].Embedding = vecs[j]
		}
		return
	}
	if err == nil {
		err = fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(chunks))
	}
	logger.Debug("batch embedding for %s failed, embedding chunks one by one: %v", path, err)

	for j := range chunks {
		vec, err := i.embeddingService.Embed(ctx, chunks[j].Content)
		if err != nil {
			logger.Warn("embedding chunk %d of %s: %v", chunks[j].Index, path, err)
			continue
		}
		chunks[j].Embedding = vec
	}
}

// syncVectors upserts embedded chunks and drops vectors that no longer
// belong to the document.
func (i *Indexer) syncVectors(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, previous []string) {
	current := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		current[c.ID] = struct{}{}
		err := i.vectorIndex.Upsert(ctx, c.ID, c.Embedding, driven.VectorMetadata{
			DocumentID: doc.ID,
			ChunkIndex: c.Index,
			Type:       doc.Type,
		})
		if err != nil {
			logger.Warn("storing vector for chunk %d of %s: %v", c.Index, doc.Path, err)
			delete(current, c.ID)
		}
	}

	var stale []string
	for _, id := range previous {
		if _, ok := current[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return
	}
	if err := i.vectorIndex.DeleteMany(ctx, stale); err != nil {
		logger.Warn("removing stale vectors for %s: %v", doc.Path, err)
	}
}

// DeleteDocument removes a document from the store and the vector index.
func (i *Indexer) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	unlock := i.docLocks.Lock(documentID)
	defer unlock()

	chunkIDs, err := i.docStore.ChunkIDs(ctx, documentID)
	if err != nil {
		return false, err
	}
	removed, err := i.docStore.DeleteDocument(ctx, documentID)
	if err != nil {
		return false, err
	}
	if removed && i.vectorIndex != nil && len(chunkIDs) > 0 {
		if err := i.vectorIndex.DeleteMany(ctx, chunkIDs); err != nil {
			logger.Warn("removing vectors for %s: %v", documentID, err)
		}
	}
	return removed, nil
}

// RemovePath deletes the document indexed from path, if any.
func (i *Indexer) RemovePath(ctx context.Context, path string) (bool, error) {
	return i.DeleteDocument(ctx, ids.Document(path))
}

// IndexDirectory indexes supported files under root in bounded batches.
func (i *Indexer) IndexDirectory(
	ctx context.Context,
	root string,
	opts domain.IndexOptions,
) (domain.IndexingProgress, error) {
	root, opts, err := i.claim(root, opts)
	if err != nil {
		return domain.IndexingProgress{}, err
	}
	defer i.finish()
	return i.run(ctx, root, opts)
}

// StartDirectory claims the indexer and indexes root in the background.
// It fails with domain.ErrIndexingInProgress before starting anything when
// another run holds the indexer. Cancelling ctx stops the run at the next
// batch boundary; Wait blocks until it has returned.
func (i *Indexer) StartDirectory(ctx context.Context, root string, opts domain.IndexOptions) error {
	root, opts, err := i.claim(root, opts)
	if err != nil {
		return err
	}

	i.background.Add(1)
	go func() {
		defer i.background.Done()
		defer i.finish()
		if _, err := i.run(ctx, root, opts); err != nil {
			logger.Warn("indexing %s: %v", root, err)
		}
	}()
	return nil
}

// Wait blocks until every run started by StartDirectory has returned.
func (i *Indexer) Wait() {
	i.background.Wait()
}

// claim validates root and marks the indexer as running.
func (i *Indexer) claim(root string, opts domain.IndexOptions) (string, domain.IndexOptions, error) {
	opts = opts.WithDefaults()
	root = ids.CanonicalPath(root)

	info, err := os.Stat(root)
	if err != nil {
		return "", opts, domain.NewFileProcessingError(root, err)
	}
	if !info.IsDir() {
		return "", opts, domain.NewFileProcessingError(root,
			fmt.Errorf("not a directory: %w", domain.ErrInvalidInput))
	}

	if err := i.begin(); err != nil {
		return "", opts, err
	}
	return root, opts, nil
}

// run indexes a claimed root. The caller releases the claim.
func (i *Indexer) run(ctx context.Context, root string, opts domain.IndexOptions) (domain.IndexingProgress, error) {
	files, err := CollectFiles(root, opts)
	if err != nil {
		i.update(opts.OnProgress, func(p *domain.IndexingProgress) {
			p.Status = domain.StatusError
			p.Error = err.Error()
		})
		return domain.IndexingProgress{}, domain.NewFileProcessingError(root, err)
	}

	now := time.Now()
	i.update(opts.OnProgress, func(p *domain.IndexingProgress) {
		*p = domain.IndexingProgress{
			RunID:     ids.NewRunID(),
			Total:     len(files),
			Status:    domain.StatusIndexing,
			StartTime: &now,
		}
	})
	logger.Info("indexing %d files under %s", len(files), root)

	width := opts.MaxConcurrentProcessing
	for start := 0; start < len(files); start += width {
		if err := i.waitIfPaused(ctx); err != nil {
			return i.fail(opts.OnProgress, err), nil
		}
		if err := ctx.Err(); err != nil {
			return i.fail(opts.OnProgress, err), nil
		}

		batch := files[start:min(start+width, len(files))]
		var wg sync.WaitGroup
		for _, file := range batch {
			wg.Add(1)
			go func(file string) {
				defer wg.Done()
				i.indexOne(ctx, file, opts)
			}(file)
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return i.fail(opts.OnProgress, err), nil
	}

	final := i.update(opts.OnProgress, func(p *domain.IndexingProgress) {
		end := time.Now()
		p.Status = domain.StatusCompleted
		p.EndTime = &end
		p.CurrentFile = ""
	})
	logger.Info("indexed %d of %d files (%d failed)", final.Succeeded(), final.Total, final.Failed)
	return final, nil
}

func (i *Indexer) indexOne(ctx context.Context, file string, opts domain.IndexOptions) {
	i.update(opts.OnProgress, func(p *domain.IndexingProgress) {
		p.CurrentFile = file
	})

	fileOpts := opts
	fileOpts.OnProgress = nil
	// A file that has started is finished even if ctx is cancelled.
	_, err := i.IndexDocument(context.WithoutCancel(ctx), file, fileOpts)
	if err != nil {
		logger.Warn("failed to index %s: %v", file, err)
	}

	i.update(opts.OnProgress, func(p *domain.IndexingProgress) {
		p.Processed++
		if err != nil {
			p.Failed++
		}
	})
}

// CollectFiles lists indexable files under root: hidden entries skipped,
// type by extension, sorted, capped at opts.MaxFiles.
func CollectFiles(root string, opts domain.IndexOptions) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if Indexable(path, opts.Types) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	if opts.MaxFiles > 0 && len(files) > opts.MaxFiles {
		files = files[:opts.MaxFiles]
	}
	return files, nil
}

// Indexable reports whether path has a supported extension within types.
func Indexable(path string, types []domain.DocumentType) bool {
	t, ok := domain.TypeForPath(path)
	if !ok {
		return false
	}
	return len(types) == 0 || domain.ContainsType(types, t)
}

// Progress returns a snapshot of the current or last directory run.
func (i *Indexer) Progress() domain.IndexingProgress {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.progress
}

// Pause stops an active run at the next batch boundary.
func (i *Indexer) Pause() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.running || i.paused || i.progress.Status != domain.StatusIndexing {
		return false
	}
	i.paused = true
	i.resume = make(chan struct{})
	i.progress.Status = domain.StatusPaused
	logger.Info("indexing paused")
	return true
}

// Resume continues a paused run.
func (i *Indexer) Resume() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.running || !i.paused {
		return false
	}
	i.paused = false
	close(i.resume)
	i.progress.Status = domain.StatusIndexing
	logger.Info("indexing resumed")
	return true
}

func (i *Indexer) waitIfPaused(ctx context.Context) error {
	i.mu.Lock()
	if !i.paused {
		i.mu.Unlock()
		return nil
	}
	resume := i.resume
	i.mu.Unlock()

	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Indexer) begin() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.running {
		return domain.ErrIndexingInProgress
	}
	i.running = true
	return nil
}

func (i *Indexer) finish() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.running = false
	i.paused = false
}

// update applies fn to the progress and delivers the snapshot to onProgress.
// cbMu keeps deliveries in update order without holding mu during callbacks.
func (i *Indexer) update(onProgress domain.ProgressFunc, fn func(*domain.IndexingProgress)) domain.IndexingProgress {
	i.cbMu.Lock()
	defer i.cbMu.Unlock()

	i.mu.Lock()
	fn(&i.progress)
	snapshot := i.progress
	i.mu.Unlock()

	if onProgress != nil {
		onProgress(snapshot)
	}
	return snapshot
}

func (i *Indexer) fail(onProgress domain.ProgressFunc, err error) domain.IndexingProgress {
	logger.Warn("indexing stopped: %v", err)
	return i.update(onProgress, func(p *domain.IndexingProgress) {
		end := time.Now()
		p.Status = domain.StatusError
		p.Error = err.Error()
		p.EndTime = &end
		p.CurrentFile = ""
	})
}
