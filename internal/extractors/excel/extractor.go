// Package excel extracts spreadsheets, rendering every sheet as a Markdown table.
package excel

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/extractors/textutil"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Excel workbooks.
type Extractor struct{}

// New creates a new Excel extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedTypes returns the document types this extractor handles.
func (e *Extractor) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypeExcel}
}

// Extract renders each non-empty sheet as a heading followed by a table.
// Legacy binary .xls workbooks cannot be opened and fail.
func (e *Extractor) Extract(_ context.Context, path string) (*domain.Extraction, error) {
	if _, err := textutil.ReadFile(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, domain.NewFileProcessingError(path, fmt.Errorf("opening workbook: %w", err))
	}
	defer f.Close()

	var sections []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, domain.NewFileProcessingError(path, fmt.Errorf("reading sheet %s: %w", sheet, err))
		}
		table := textutil.MarkdownTable(rows)
		if table == "" {
			continue
		}
		sections = append(sections, "## "+sheet+"\n\n"+table)
	}

	meta := domain.ExtractionMetadata{
		Type:      domain.DocumentTypeExcel,
		MIMEType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		PageCount: len(sections),
	}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		meta.Title = strings.TrimSpace(props.Title)
		meta.Author = strings.TrimSpace(props.Creator)
		for _, kw := range strings.Split(props.Keywords, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				meta.Tags = append(meta.Tags, kw)
			}
		}
	}

	return textutil.Finish(path, strings.Join(sections, "\n\n"), meta)
}
