package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
	"github.com/custodia-labs/kindex/internal/ids"
	"github.com/custodia-labs/kindex/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driving.WatchService = (*Watcher)(nil)

// pathIndexer is the part of the Indexer a watcher drives.
type pathIndexer interface {
	IndexDocument(ctx context.Context, path string, opts domain.IndexOptions) (string, error)
	RemovePath(ctx context.Context, path string) (bool, error)
}

// Watcher owns one fsnotify watcher per watched directory.
type Watcher struct {
	indexer pathIndexer

	mu      sync.Mutex
	watches map[string]*watch
	loops   sync.WaitGroup
}

// watch is the handle for one watched directory.
type watch struct {
	root    string
	opts    domain.IndexOptions
	fsw     *fsnotify.Watcher
	stop    chan struct{}
	stopped sync.Once
}

// NewWatcher creates a watcher that indexes through indexer.
func NewWatcher(indexer pathIndexer) *Watcher {
	return &Watcher{
		indexer: indexer,
		watches: make(map[string]*watch),
	}
}

// Watch starts watching path until Stop, StopAll or ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, path string, opts domain.IndexOptions) error {
	root := ids.CanonicalPath(path)
	info, err := os.Stat(root)
	if err != nil {
		return domain.NewFileProcessingError(root, err)
	}
	if !info.IsDir() {
		return domain.NewFileProcessingError(root, fmt.Errorf("not a directory: %w", domain.ErrInvalidInput))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watches[root]; ok {
		return fmt.Errorf("%s: %w", root, domain.ErrAlreadyWatching)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	h := &watch{
		root: root,
		opts: opts.WithDefaults(),
		fsw:  fsw,
		stop: make(chan struct{}),
	}
	if err := h.addTree(root); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watching %s: %w", root, err)
	}

	w.watches[root] = h

	// In-flight indexing runs to completion after stop.
	w.loops.Add(1)
	go func() {
		defer w.loops.Done()
		w.loop(context.WithoutCancel(ctx), ctx.Done(), h)
	}()

	logger.Info("watching %s", root)
	return nil
}

// addTree registers dir and, for recursive watches, its visible subdirectories.
func (h *watch) addTree(dir string) error {
	if !h.opts.Recursive {
		return h.fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		if err := h.fsw.Add(path); err != nil {
			logger.Warn("cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context, cancelled <-chan struct{}, h *watch) {
	defer h.fsw.Close()

	for {
		select {
		case <-h.stop:
			return
		case <-cancelled:
			w.remove(h)
			return
		case err, ok := <-h.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher %s: %v", h.root, err)
		case event, ok := <-h.fsw.Events:
			if !ok {
				return
			}
			// Drop events that arrive after Stop.
			select {
			case <-h.stop:
				return
			default:
			}
			w.handle(ctx, h, event)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, h *watch, event fsnotify.Event) {
	if h.opts.Recursive && event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(event.Name) {
			if err := h.addTree(event.Name); err != nil {
				logger.Warn("watching new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	change, ok := classifyEvent(event, h.opts.Types)
	if !ok {
		return
	}

	switch change.Type {
	case domain.ChangeCreated, domain.ChangeUpdated:
		logger.Debug("%s %s", change.Type, change.Path)
		if _, err := w.indexer.IndexDocument(ctx, change.Path, h.opts); err != nil {
			logger.Warn("reindexing %s: %v", change.Path, err)
		}
	case domain.ChangeDeleted:
		removed, err := w.indexer.RemovePath(ctx, change.Path)
		if err != nil {
			logger.Warn("removing %s: %v", change.Path, err)
			return
		}
		if removed {
			logger.Debug("removed %s", change.Path)
		}
	}
}

// classifyEvent maps an fsnotify event to a file change. Hidden files,
// directories, unsupported types and attribute-only events are ignored.
// Create and Write re-check that the file still exists.
func classifyEvent(event fsnotify.Event, types []domain.DocumentType) (domain.FileChange, bool) {
	path := event.Name
	if isHidden(path) || !Indexable(path, types) {
		return domain.FileChange{}, false
	}

	var changeType domain.ChangeType
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return domain.FileChange{Type: domain.ChangeDeleted, Path: path}, true
	case event.Has(fsnotify.Create):
		changeType = domain.ChangeCreated
	case event.Has(fsnotify.Write):
		changeType = domain.ChangeUpdated
	default:
		return domain.FileChange{}, false
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return domain.FileChange{}, false
	}
	return domain.FileChange{Type: changeType, Path: path}, true
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Stop stops the watcher for path. Returns false if none existed.
// Indexing already in progress for the path completes.
func (w *Watcher) Stop(path string) bool {
	root := ids.CanonicalPath(path)

	w.mu.Lock()
	h, ok := w.watches[root]
	delete(w.watches, root)
	w.mu.Unlock()

	if !ok {
		return false
	}
	h.signal()
	logger.Info("stopped watching %s", root)
	return true
}

// StopAll stops every watcher and waits for their event loops to exit,
// including loops already stopped by Stop or context cancellation. An event
// being indexed when StopAll is called is indexed before it returns.
func (w *Watcher) StopAll() {
	w.mu.Lock()
	handles := w.watches
	w.watches = make(map[string]*watch)
	w.mu.Unlock()

	for _, h := range handles {
		h.signal()
	}
	w.loops.Wait()
}

// WatchedPaths lists watched directories in sorted order.
func (w *Watcher) WatchedPaths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.watches))
	for p := range w.watches {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (w *Watcher) remove(h *watch) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watches[h.root] == h {
		delete(w.watches, h.root)
	}
}

func (h *watch) signal() {
	h.stopped.Do(func() { close(h.stop) })
}
