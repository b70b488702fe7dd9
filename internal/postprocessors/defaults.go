package postprocessors

import (
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/postprocessors/chunker"
)

// Keys read from the "chunker" section of a PipelineConfig.
const (
	ChunkerName       = "chunker"
	ChunkerSizeKey    = "chunk_size"
	ChunkerOverlapKey = "overlap"
)

// RegisterDefaults registers the built-in processors.
func RegisterDefaults(r *Registry) {
	r.Register(ChunkerName, buildChunker)
}

// buildChunker reads chunk_size (characters) and overlap (words). Missing
// or non-positive sizes keep the chunker defaults; overlap 0 disables it.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option
	if size, ok := intValue(cfg[ChunkerSizeKey]); ok && size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := intValue(cfg[ChunkerOverlapKey]); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	return chunker.New(opts...), nil
}

// intValue accepts the numeric shapes TOML and JSON decoding produce.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
