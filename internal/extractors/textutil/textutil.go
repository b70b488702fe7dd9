// Package textutil holds helpers shared by the content extractors.
package textutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// ErrEmptyContent reports a file that produced no text.
var ErrEmptyContent = errors.New("no extractable text")

// ReadFile reads path, wrapping every failure in a FileProcessingError.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewFileProcessingError(path, err)
	}
	if info.IsDir() {
		return nil, domain.NewFileProcessingError(path, fmt.Errorf("is a directory: %w", domain.ErrInvalidInput))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFileProcessingError(path, err)
	}
	return data, nil
}

// TitleFromPath derives a human-readable title from a file name.
func TitleFromPath(path string) string {
	filename := filepath.Base(path)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// CountWords returns the number of whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// LooksLikeText reports whether data is valid UTF-8 without NUL bytes.
func LooksLikeText(data []byte) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	return utf8.Valid(data)
}

// NormaliseNewlines converts CRLF and CR line endings to LF.
func NormaliseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Finish validates extracted text and fills the word count.
// Blank text is a FileProcessingError.
func Finish(path, text string, meta domain.ExtractionMetadata) (*domain.Extraction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewFileProcessingError(path, ErrEmptyContent)
	}
	if meta.Title == "" {
		meta.Title = TitleFromPath(path)
	}
	meta.WordCount = CountWords(text)
	return &domain.Extraction{Text: text, Metadata: meta}, nil
}
