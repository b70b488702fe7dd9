package docx

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

type mockRunner struct {
	output []byte
	err    error
	called bool
}

func (m *mockRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	m.called = true
	return m.output, m.err
}

const documentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> World</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
    <w:tbl><w:tr>
      <w:tc><w:p><w:r><w:t>Cell A</w:t></w:r></w:p></w:tc>
      <w:tc><w:p><w:r><w:t>Cell B</w:t></w:r></w:p></w:tc>
    </w:tr></w:tbl>
  </w:body>
</w:document>`

const coreXMLContent = `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
  xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:title>Quarterly Review</dc:title>
  <dc:creator>Jordan Lee</dc:creator>
  <cp:keywords>finance; review</cp:keywords>
</cp:coreProperties>`

func writeDocx(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "review.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtract_Docx(t *testing.T) {
	path := writeDocx(t, map[string]string{
		"word/document.xml": documentXML,
		"docProps/core.xml": coreXMLContent,
	})

	ext, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hello World\n\nSecond paragraph\n\nCell A\n\nCell B", ext.Text)
	assert.Equal(t, "Quarterly Review", ext.Metadata.Title)
	assert.Equal(t, "Jordan Lee", ext.Metadata.Author)
	assert.Equal(t, []string{"finance", "review"}, ext.Metadata.Tags)
	assert.Equal(t, domain.DocumentTypeWord, ext.Metadata.Type)
}

func TestExtract_DocxWithoutCore(t *testing.T) {
	path := writeDocx(t, map[string]string{"word/document.xml": documentXML})

	ext, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "review", ext.Metadata.Title)
}

func TestExtract_MissingDocumentXML(t *testing.T) {
	path := writeDocx(t, map[string]string{"other.xml": "<a/>"})

	_, err := New().Extract(context.Background(), path)
	var fpe *domain.FileProcessingError
	require.ErrorAs(t, err, &fpe)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtract_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.docx")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0o600))

	_, err := New().Extract(context.Background(), path)
	var fpe *domain.FileProcessingError
	assert.ErrorAs(t, err, &fpe)
}

func TestExtract_LegacyDoc(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.doc")
	require.NoError(t, os.WriteFile(path, append(append([]byte{}, oleSignature...), 0, 0, 0), 0o600))

	runner := &mockRunner{output: []byte("Legacy memo text\r\n")}
	ext, err := NewWithRunner(runner).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, runner.called)
	assert.Equal(t, "Legacy memo text", ext.Text)
	assert.Equal(t, "application/msword", ext.Metadata.MIMEType)
}

func TestExtract_LegacyDocToolMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.doc")
	require.NoError(t, os.WriteFile(path, oleSignature, 0o600))

	_, err := NewWithRunner(&mockRunner{err: ErrDocToolNotFound}).Extract(context.Background(), path)
	assert.True(t, errors.Is(err, ErrDocToolNotFound))
}
