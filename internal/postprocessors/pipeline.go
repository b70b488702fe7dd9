// Package postprocessors turns extracted document text into chunks through
// a configurable chain of processors.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/ids"
)

// Pipeline chains multiple PostProcessors and runs them in order.
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through all processors in order.
// The first processor receives nil chunks and should create them.
// The final chunk list is compacted: blank chunks are dropped and the
// rest renumbered from zero with IDs derived from their new index.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	var chunks []domain.Chunk

	for _, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return compact(doc.ID, chunks), nil
}

func compact(documentID string, chunks []domain.Chunk) []domain.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		c.DocumentID = documentID
		c.Index = len(out)
		c.ID = ids.Chunk(documentID, c.Index)
		out = append(out, c)
	}
	return out
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
