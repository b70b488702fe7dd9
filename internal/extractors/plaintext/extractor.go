// Package plaintext extracts UTF-8 text files.
package plaintext

import (
	"context"
	"fmt"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/extractors/textutil"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedTypes returns the document types this extractor handles.
func (e *Extractor) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypeText}
}

// Extract reads the file as text. Binary content is rejected.
func (e *Extractor) Extract(_ context.Context, path string) (*domain.Extraction, error) {
	data, err := textutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !textutil.LooksLikeText(data) {
		return nil, domain.NewFileProcessingError(path, fmt.Errorf("binary content: %w", domain.ErrUnsupportedType))
	}

	return textutil.Finish(path, textutil.NormaliseNewlines(string(data)), domain.ExtractionMetadata{
		Type:     domain.DocumentTypeText,
		MIMEType: "text/plain",
	})
}
