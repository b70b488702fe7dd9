package driven

import (
	"context"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// Extractor turns a file of one format into text and metadata.
type Extractor interface {
	// SupportedTypes returns the document types this extractor handles.
	SupportedTypes() []domain.DocumentType

	// Extract reads path and returns its text. Failures are reported as
	// *domain.FileProcessingError.
	Extract(ctx context.Context, path string) (*domain.Extraction, error)
}

// ExtractorRegistry detects a file's type and dispatches to the
// registered Extractor.
type ExtractorRegistry interface {
	// Extract detects the type of path and extracts it.
	Extract(ctx context.Context, path string) (*domain.Extraction, error)

	// DetectType resolves the document type of path: extension first,
	// then content signature, then a plain-text probe.
	DetectType(path string) (domain.DocumentType, error)

	// Register adds an extractor for its supported types.
	Register(extractor Extractor)

	// SupportedTypes returns all types that can be extracted.
	SupportedTypes() []domain.DocumentType
}
