// Package docx extracts Word documents. Office Open XML (.docx) files are
// parsed directly; legacy binary .doc files are converted with antiword.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/extractors/textutil"
)

// ErrDocToolNotFound indicates antiword is not installed.
var ErrDocToolNotFound = errors.New("antiword not found in PATH")

// legacyTool converts binary .doc files to text.
const legacyTool = "antiword"

// oleSignature prefixes every Compound File Binary (.doc, .xls) file.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrDocToolNotFound
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Word documents.
type Extractor struct {
	runner CommandRunner
}

// New creates a new Word extractor.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates a Word extractor with a custom runner for .doc files.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// SupportedTypes returns the document types this extractor handles.
func (e *Extractor) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypeWord}
}

// Extract reads a .docx or .doc file.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.Extraction, error) {
	data, err := textutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(data, oleSignature) {
		return e.extractLegacy(ctx, path)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.NewFileProcessingError(path, fmt.Errorf("not a word document: %w", err))
	}

	body, err := readZipEntry(reader, "word/document.xml")
	if err != nil {
		return nil, domain.NewFileProcessingError(path, err)
	}
	text, err := parseDocumentXML(body)
	if err != nil {
		return nil, domain.NewFileProcessingError(path, err)
	}

	meta := domain.ExtractionMetadata{
		Type:     domain.DocumentTypeWord,
		MIMEType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
	if core, err := readZipEntry(reader, "docProps/core.xml"); err == nil {
		applyCoreProperties(core, &meta)
	}
	return textutil.Finish(path, text, meta)
}

func (e *Extractor) extractLegacy(ctx context.Context, path string) (*domain.Extraction, error) {
	out, err := e.runner.Run(ctx, legacyTool, "-w", "0", path)
	if err != nil {
		return nil, domain.NewFileProcessingError(path, fmt.Errorf("antiword failed: %w", err))
	}
	return textutil.Finish(path, textutil.NormaliseNewlines(string(out)), domain.ExtractionMetadata{
		Type:     domain.DocumentTypeWord,
		MIMEType: "application/msword",
	})
}

func readZipEntry(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s missing: %w", name, domain.ErrInvalidInput)
}

// parseDocumentXML walks word/document.xml, emitting run text and a blank
// line after each paragraph, including paragraphs nested in tables.
func parseDocumentXML(content []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	var result, para strings.Builder
	inText := false

	flush := func() {
		if s := strings.TrimSpace(para.String()); s != "" {
			result.WriteString(s)
			result.WriteString("\n\n")
		}
		para.Reset()
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "br", "cr":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			case "tc":
				para.WriteString(" ")
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	flush()
	return strings.TrimSpace(result.String()), nil
}

// coreXML represents the fields of docProps/core.xml used for metadata.
type coreXML struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Keywords string `xml:"keywords"`
}

func applyCoreProperties(content []byte, meta *domain.ExtractionMetadata) {
	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return
	}
	meta.Title = strings.TrimSpace(core.Title)
	meta.Author = strings.TrimSpace(core.Creator)
	for _, kw := range strings.FieldsFunc(core.Keywords, func(r rune) bool { return r == ',' || r == ';' }) {
		if kw = strings.TrimSpace(kw); kw != "" {
			meta.Tags = append(meta.Tags, kw)
		}
	}
}
