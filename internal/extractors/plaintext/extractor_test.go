package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestSupportedTypes(t *testing.T) {
	assert.Equal(t, []domain.DocumentType{domain.DocumentTypeText}, New().SupportedTypes())
}

func TestExtract_Text(t *testing.T) {
	path := writeFile(t, "meeting_notes.txt", []byte("Agenda\r\n\r\nDiscuss the budget.\r\n"))

	ext, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Agenda\n\nDiscuss the budget.", ext.Text)
	assert.Equal(t, "meeting notes", ext.Metadata.Title)
	assert.Equal(t, domain.DocumentTypeText, ext.Metadata.Type)
	assert.Equal(t, 4, ext.Metadata.WordCount)
}

func TestExtract_Binary(t *testing.T) {
	path := writeFile(t, "blob.txt", []byte{0x00, 0x10, 0x20})

	_, err := New().Extract(context.Background(), path)
	require.Error(t, err)
	var fpe *domain.FileProcessingError
	assert.ErrorAs(t, err, &fpe)
	assert.Equal(t, path, fpe.Path)
}

func TestExtract_Empty(t *testing.T) {
	path := writeFile(t, "empty.txt", nil)

	_, err := New().Extract(context.Background(), path)
	var fpe *domain.FileProcessingError
	assert.ErrorAs(t, err, &fpe)
}

func TestExtract_Missing(t *testing.T) {
	_, err := New().Extract(context.Background(), "/nonexistent/file.txt")
	var fpe *domain.FileProcessingError
	assert.ErrorAs(t, err, &fpe)
}
