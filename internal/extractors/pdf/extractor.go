// Package pdf extracts text from PDF files using the poppler pdftotext tool.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/extractors/textutil"
)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// toolName is the poppler binary used for extraction.
const toolName = "pdftotext"

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PDF documents.
type Extractor struct {
	runner CommandRunner
}

// New creates a PDF extractor that shells out to pdftotext.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates a PDF extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// CheckAvailable returns ErrPDFToolNotFound if pdftotext is missing.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific instructions for pdftotext.
func InstallInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "PDF support requires pdftotext. Install with: brew install poppler"
	case "windows":
		return "PDF support requires pdftotext. Install poppler for Windows and add it to PATH"
	default:
		return "PDF support requires pdftotext. Install with: apt install poppler-utils (or your distribution's poppler package)"
	}
}

// SupportedTypes returns the document types this extractor handles.
func (e *Extractor) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypePDF}
}

// Extract converts the PDF to text with layout preserved. Pages are
// separated by form feeds in pdftotext output and become blank lines.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.Extraction, error) {
	if _, err := textutil.ReadFile(path); err != nil {
		return nil, err
	}

	out, err := e.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, domain.NewFileProcessingError(path, fmt.Errorf("pdftotext failed: %w", err))
	}

	raw := textutil.NormaliseNewlines(string(out))
	pages := splitPages(raw)

	meta := domain.ExtractionMetadata{
		Type:      domain.DocumentTypePDF,
		MIMEType:  "application/pdf",
		PageCount: len(pages),
		Title:     extractTitle(raw),
	}
	return textutil.Finish(path, strings.Join(pages, "\n\n"), meta)
}

// splitPages splits pdftotext output on form feeds, dropping blank pages
// and the empty tail after the final separator.
func splitPages(text string) []string {
	parts := strings.Split(text, "\f")
	pages := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(collapseLayout(p))
		if p != "" {
			pages = append(pages, p)
		}
	}
	return pages
}

// collapseLayout trims trailing spaces that -layout pads lines with.
func collapseLayout(page string) string {
	lines := strings.Split(page, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// extractTitle returns the first non-blank line when it is short enough to
// be a heading.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "\f", ""))
		if line == "" {
			continue
		}
		if len(line) > 120 {
			return ""
		}
		return strings.Join(strings.Fields(line), " ")
	}
	return ""
}
