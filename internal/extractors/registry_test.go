package extractors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// stubExtractor records calls and returns a fixed extraction.
type stubExtractor struct {
	types []domain.DocumentType
	calls int
}

func (s *stubExtractor) SupportedTypes() []domain.DocumentType { return s.types }

func (s *stubExtractor) Extract(_ context.Context, path string) (*domain.Extraction, error) {
	s.calls++
	return &domain.Extraction{Text: "stub " + filepath.Base(path)}, nil
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestNewDefaultRegistry_SupportsEveryType(t *testing.T) {
	r := NewDefaultRegistry()
	assert.ElementsMatch(t, domain.AllDocumentTypes(), r.SupportedTypes())
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     []byte
		expected domain.DocumentType
	}{
		{"extension wins", "notes.md", []byte("%PDF-1.7"), domain.DocumentTypeMarkdown},
		{"pdf signature", "scan.bin", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"), domain.DocumentTypePDF},
		{"text probe", "LICENSE", []byte("Permission is hereby granted, free of charge.\n"), domain.DocumentTypeText},
	}

	r := NewDefaultRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.DetectType(writeFile(t, tc.file, tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestDetectType_Unsupported(t *testing.T) {
	path := writeFile(t, "image.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00"))

	_, err := NewDefaultRegistry().DetectType(path)
	require.Error(t, err)

	var fpe *domain.FileProcessingError
	require.True(t, errors.As(err, &fpe))
	assert.Equal(t, path, fpe.Path)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestDetectType_Missing(t *testing.T) {
	_, err := NewDefaultRegistry().DetectType(filepath.Join(t.TempDir(), "gone.bin"))
	var fpe *domain.FileProcessingError
	assert.ErrorAs(t, err, &fpe)
}

func TestExtract_Dispatch(t *testing.T) {
	stub := &stubExtractor{types: []domain.DocumentType{domain.DocumentTypeText}}
	r := NewRegistry()
	r.Register(stub)

	ext, err := r.Extract(context.Background(), writeFile(t, "a.txt", []byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "stub a.txt", ext.Text)
	assert.Equal(t, domain.DocumentTypeText, ext.Metadata.Type)
}

func TestExtract_NoExtractorRegistered(t *testing.T) {
	_, err := NewRegistry().Extract(context.Background(), writeFile(t, "a.csv", []byte("a,b")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestExtract_EndToEndFormats(t *testing.T) {
	r := NewDefaultRegistry()
	files := map[string]string{
		"plain.txt":  "Plain text body.",
		"readme.md":  "# Heading\n\nMarkdown body.",
		"table.csv":  "col1,col2\nv1,v2\n",
		"unknown.nf": "Unknown extension but readable text.",
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			ext, err := r.Extract(context.Background(), writeFile(t, name, []byte(content)))
			require.NoError(t, err)
			assert.NotEmpty(t, ext.Text)
			assert.Positive(t, ext.Metadata.WordCount)
		})
	}
}
