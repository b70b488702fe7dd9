package driven

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// PostProcessor processes document content to produce chunks.
// PostProcessors are chained in a pipeline.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A chunk-creating processor receives nil and returns new chunks;
	// later processors receive and return the running chunk list.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}

// PipelineBuilder assembles a pipeline for per-run chunking settings.
type PipelineBuilder interface {
	Pipeline(cfg domain.PipelineConfig) (PostProcessorPipeline, error)
}
