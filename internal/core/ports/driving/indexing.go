package driving

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// IndexingService ingests files into the knowledge base.
type IndexingService interface {
	// IndexDocument extracts, chunks, embeds and stores one file.
	// Returns the document ID, which is stable for a given path.
	IndexDocument(ctx context.Context, path string, opts domain.IndexOptions) (string, error)

	// IndexDirectory indexes supported files under path in bounded batches.
	// Per-file failures are counted, never returned.
	IndexDirectory(ctx context.Context, path string, opts domain.IndexOptions) (domain.IndexingProgress, error)

	// StartDirectory claims the indexer and indexes path in the background.
	StartDirectory(ctx context.Context, path string, opts domain.IndexOptions) error

	// Wait blocks until background runs started by StartDirectory return.
	Wait()

	// Progress returns a snapshot of the current or last directory run.
	Progress() domain.IndexingProgress

	// Pause stops an active directory run at the next batch boundary.
	Pause() bool

	// Resume continues a paused run.
	Resume() bool
}

// WatchService keeps directories in sync with the knowledge base.
type WatchService interface {
	// Watch starts watching path. Fails with domain.ErrAlreadyWatching
	// when the path already has a watcher.
	Watch(ctx context.Context, path string, opts domain.IndexOptions) error

	// Stop stops the watcher for path. Returns false if none existed.
	Stop(path string) bool

	// StopAll stops every watcher and waits for in-flight events.
	StopAll()

	// WatchedPaths lists watched directories in sorted order.
	WatchedPaths() []string
}
