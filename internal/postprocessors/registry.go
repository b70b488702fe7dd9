package postprocessors

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// BuilderFunc creates a processor from its section of a PipelineConfig.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

var _ driven.PipelineBuilder = (*Registry)(nil)

// Registry maps processor names to builders and caches built pipelines.
// The indexer asks for a pipeline per document, and directory runs
// almost always reuse the same chunk sizing.
type Registry struct {
	mu       sync.Mutex
	builders map[string]BuilderFunc
	cache    map[string]*Pipeline
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
		cache:    make(map[string]*Pipeline),
	}
}

// Register adds or replaces a builder. Replacing a builder drops cached
// pipelines.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
	clear(r.cache)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.builders[name]
	return ok
}

// Names returns registered processor names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates one processor.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	r.mu.Lock()
	builder, ok := r.builders[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown processor %q: %w", name, domain.ErrInvalidInput)
	}
	return builder(cfg)
}

// Pipeline returns the pipeline for cfg, building it on first use.
func (r *Registry) Pipeline(cfg domain.PipelineConfig) (driven.PostProcessorPipeline, error) {
	key := cacheKey(cfg)

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	pipeline, err := r.BuildPipeline(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = pipeline
	r.mu.Unlock()
	return pipeline, nil
}

// BuildPipeline builds a fresh pipeline with processors in cfg order.
func (r *Registry) BuildPipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("empty pipeline: %w", domain.ErrInvalidInput)
	}
	pipeline := NewPipeline()
	for _, name := range cfg.Processors {
		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		pipeline.Add(proc)
	}
	return pipeline, nil
}

// cacheKey renders cfg deterministically: processor order is significant,
// per-processor keys are sorted.
func cacheKey(cfg domain.PipelineConfig) string {
	var b strings.Builder
	for _, name := range cfg.Processors {
		b.WriteString(name)
		section := cfg.GetProcessorConfig(name)
		keys := make([]string, 0, len(section))
		for k := range section {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, ";%s=%v", k, section[k])
		}
		b.WriteByte('|')
	}
	return b.String()
}
