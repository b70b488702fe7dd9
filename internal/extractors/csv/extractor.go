// Package csv extracts delimited text files as Markdown tables.
package csv

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/extractors/textutil"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles CSV documents.
type Extractor struct{}

// New creates a new CSV extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedTypes returns the document types this extractor handles.
func (e *Extractor) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypeCSV}
}

// Extract parses the file and renders it as a Markdown table whose header
// is the first record.
func (e *Extractor) Extract(_ context.Context, path string) (*domain.Extraction, error) {
	data, err := textutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !textutil.LooksLikeText(data) {
		return nil, domain.NewFileProcessingError(path, fmt.Errorf("binary content: %w", domain.ErrUnsupportedType))
	}

	rows, err := parse(data)
	if err != nil {
		return nil, domain.NewFileProcessingError(path, err)
	}

	return textutil.Finish(path, textutil.MarkdownTable(rows), domain.ExtractionMetadata{
		Type:     domain.DocumentTypeCSV,
		MIMEType: "text/csv",
	})
}

func parse(data []byte) ([][]string, error) {
	reader := stdcsv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// sniffDelimiter picks the most frequent candidate delimiter on the first line.
func sniffDelimiter(data []byte) rune {
	line := string(data)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', 0
	for _, candidate := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(candidate)); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}
