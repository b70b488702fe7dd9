package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/ids"
	"github.com/custodia-labs/kindex/internal/logger"
)

// directoryIndexer is the part of the Indexer a scheduler drives.
type directoryIndexer interface {
	IndexDirectory(ctx context.Context, path string, opts domain.IndexOptions) (domain.IndexingProgress, error)
}

// RescanResult records the outcome of the last scheduled run for a root.
type RescanResult struct {
	Root      string
	StartedAt time.Time
	EndedAt   time.Time
	Progress  domain.IndexingProgress
	Error     string
}

// Scheduler periodically re-indexes a fixed set of directories. It catches
// changes a watcher misses, such as edits made while kindex was not running.
type Scheduler struct {
	indexer  directoryIndexer
	interval time.Duration
	roots    []string
	opts     domain.IndexOptions

	// tick is replaced in tests.
	tick func(time.Duration) (<-chan time.Time, func())

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	results map[string]RescanResult
}

// NewScheduler creates a scheduler that re-indexes roots every interval.
func NewScheduler(indexer directoryIndexer, interval time.Duration, roots []string, opts domain.IndexOptions) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("rescan interval must be positive: %w", domain.ErrInvalidInput)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no directories to rescan: %w", domain.ErrInvalidInput)
	}

	canonical := make([]string, 0, len(roots))
	seen := make(map[string]bool, len(roots))
	for _, r := range roots {
		c := ids.CanonicalPath(r)
		if !seen[c] {
			seen[c] = true
			canonical = append(canonical, c)
		}
	}

	opts.OnProgress = nil
	return &Scheduler{
		indexer:  indexer,
		interval: interval,
		roots:    canonical,
		opts:     opts,
		tick:     newTicker,
		results:  make(map[string]RescanResult),
	}, nil
}

func newTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Start runs the scheduler loop. It blocks until Stop is called or ctx is
// cancelled. Calling Start on a running scheduler returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	logger.Info("Rescanning %d directories every %s", len(s.roots), s.interval)

	ticks, stop := s.tick(s.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			s.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticks:
			s.runAll(ctx)
		}
	}
}

// Stop ends the loop and waits for an in-flight rescan to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// RunNow rescans every root once, synchronously.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.runAll(ctx)
}

// Results returns the last outcome per root, ordered by root.
func (s *Scheduler) Results() []RescanResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RescanResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Root < out[j].Root })
	return out
}

func (s *Scheduler) runAll(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	for _, root := range s.roots {
		if ctx.Err() != nil {
			return
		}
		s.runOne(ctx, root)
	}
}

func (s *Scheduler) runOne(ctx context.Context, root string) {
	result := RescanResult{Root: root, StartedAt: time.Now()}

	progress, err := s.indexer.IndexDirectory(ctx, root, s.opts)
	result.EndedAt = time.Now()
	result.Progress = progress

	switch {
	case errors.Is(err, domain.ErrIndexingInProgress):
		// Another run owns the indexer; try again on the next tick.
		logger.Debug("Rescan of %s skipped: indexing in progress", root)
		result.Error = err.Error()
	case err != nil:
		logger.Warn("Rescan of %s failed: %v", root, err)
		result.Error = err.Error()
	default:
		logger.Debug("Rescanned %s: %d of %d files", root, progress.Succeeded(), progress.Total)
	}

	s.mu.Lock()
	s.results[root] = result
	s.mu.Unlock()
}
