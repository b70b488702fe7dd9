package extractors

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/extractors/csv"
	"github.com/custodia-labs/kindex/internal/extractors/docx"
	"github.com/custodia-labs/kindex/internal/extractors/excel"
	"github.com/custodia-labs/kindex/internal/extractors/markdown"
	"github.com/custodia-labs/kindex/internal/extractors/pdf"
	"github.com/custodia-labs/kindex/internal/extractors/plaintext"
	"github.com/custodia-labs/kindex/internal/extractors/textutil"
	"github.com/custodia-labs/kindex/internal/logger"
)

// probeBytes is how much of a file the plain-text probe inspects.
const probeBytes = 8192

// Registry maps document types to extractors.
// It implements the ExtractorRegistry interface.
type Registry struct {
	mu         sync.RWMutex
	extractors map[domain.DocumentType]driven.Extractor
}

var _ driven.ExtractorRegistry = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[domain.DocumentType]driven.Extractor)}
}

// NewDefaultRegistry creates a registry with every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(excel.New())
	r.Register(csv.New())
	r.Register(docx.New())
	r.Register(markdown.New())
	r.Register(plaintext.New())
	return r
}

// Register adds an extractor for each of its supported types, replacing
// any previous registration.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range extractor.SupportedTypes() {
		r.extractors[t] = extractor
	}
}

// SupportedTypes returns all registered types in sorted order.
func (r *Registry) SupportedTypes() []domain.DocumentType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.DocumentType, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Extract detects the type of path and runs the matching extractor.
func (r *Registry) Extract(ctx context.Context, path string) (*domain.Extraction, error) {
	docType, err := r.DetectType(path)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	extractor, ok := r.extractors[docType]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewFileProcessingError(path, fmt.Errorf("no extractor for %s: %w", docType, domain.ErrUnsupportedType))
	}

	logger.Debug("extracting %s as %s", path, docType)
	ext, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if ext.Metadata.Type == "" {
		ext.Metadata.Type = docType
	}
	return ext, nil
}

// DetectType resolves the type of path: extension first, then content
// signature, then a plain-text probe.
func (r *Registry) DetectType(path string) (domain.DocumentType, error) {
	if t, ok := domain.TypeForPath(path); ok {
		return t, nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", domain.NewFileProcessingError(path, err)
	}
	if t, ok := typeForMIME(mtype); ok {
		logger.Debug("detected %s as %s by signature (%s)", path, t, mtype.String())
		return t, nil
	}

	if probeText(path) {
		return domain.DocumentTypeText, nil
	}

	return "", domain.NewFileProcessingError(path,
		fmt.Errorf("unrecognised content %s: %w", mtype.String(), domain.ErrUnsupportedType))
}

// mimeTypes maps signature-detected MIME types to document types,
// most specific first.
var mimeTypes = []struct {
	mime    string
	docType domain.DocumentType
}{
	{"application/pdf", domain.DocumentTypePDF},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", domain.DocumentTypeExcel},
	{"application/vnd.ms-excel", domain.DocumentTypeExcel},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", domain.DocumentTypeWord},
	{"application/msword", domain.DocumentTypeWord},
	{"text/csv", domain.DocumentTypeCSV},
	{"text/plain", domain.DocumentTypeText},
}

// typeForMIME walks up the MIME hierarchy until a known type matches.
func typeForMIME(mtype *mimetype.MIME) (domain.DocumentType, bool) {
	for m := mtype; m != nil; m = m.Parent() {
		for _, known := range mimeTypes {
			if m.Is(known.mime) {
				return known.docType, true
			}
		}
	}
	return "", false
}

// probeText reports whether the head of path is non-empty text.
func probeText(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, probeBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	data := buf[:n]
	if n == probeBytes {
		// A multi-byte rune may straddle the probe boundary.
		for i := 0; i < utf8.UTFMax-1 && !utf8.Valid(data); i++ {
			data = data[:len(data)-1]
		}
	}
	return n > 0 && textutil.LooksLikeText(data)
}
