package domain

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// DocumentType classifies an indexed file by its content format.
type DocumentType string

// Supported document types.
const (
	DocumentTypePDF      DocumentType = "pdf"
	DocumentTypeExcel    DocumentType = "excel"
	DocumentTypeCSV      DocumentType = "csv"
	DocumentTypeWord     DocumentType = "word"
	DocumentTypeText     DocumentType = "text"
	DocumentTypeMarkdown DocumentType = "markdown"
)

// AllDocumentTypes lists every supported type in display order.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypePDF,
		DocumentTypeExcel,
		DocumentTypeCSV,
		DocumentTypeWord,
		DocumentTypeText,
		DocumentTypeMarkdown,
	}
}

// extensionTypes maps lowercase file extensions to document types.
var extensionTypes = map[string]DocumentType{
	".pdf":      DocumentTypePDF,
	".xlsx":     DocumentTypeExcel,
	".xls":      DocumentTypeExcel,
	".csv":      DocumentTypeCSV,
	".docx":     DocumentTypeWord,
	".doc":      DocumentTypeWord,
	".txt":      DocumentTypeText,
	".md":       DocumentTypeMarkdown,
	".markdown": DocumentTypeMarkdown,
}

// TypeForPath returns the document type implied by the file extension.
// The second return value is false for unknown extensions.
func TypeForPath(path string) (DocumentType, bool) {
	t, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	return t, ok
}

// IsValid reports whether t is one of the supported types.
func (t DocumentType) IsValid() bool {
	for _, known := range AllDocumentTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseDocumentTypes converts raw strings into document types.
// Unknown names produce ErrInvalidInput.
func ParseDocumentTypes(raw []string) ([]DocumentType, error) {
	types := make([]DocumentType, 0, len(raw))
	for _, r := range raw {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		t := DocumentType(r)
		if !t.IsValid() {
			return nil, &invalidTypeError{name: r}
		}
		types = append(types, t)
	}
	return types, nil
}

type invalidTypeError struct{ name string }

func (e *invalidTypeError) Error() string { return "unknown document type " + e.name }
func (e *invalidTypeError) Unwrap() error { return ErrInvalidInput }

// ContainsType reports whether t is in types. An empty list matches everything.
func ContainsType(types []DocumentType, t DocumentType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// Document represents an indexed file with its extracted metadata.
type Document struct {
	// ID is derived from the cleaned absolute path, so reindexing
	// the same file always produces the same identifier.
	ID string

	// Title is the human-readable title.
	Title string

	// Path is the absolute location of the file on disk.
	Path string

	// Type is the detected content format.
	Type DocumentType

	// Size is the file size in bytes.
	Size int64

	// Created is when the document was first indexed.
	Created time.Time

	// Modified is the file modification time.
	Modified time.Time

	// Indexed is when the document was last indexed.
	Indexed time.Time

	Author    string
	Tags      Tags
	Summary   string
	KeyPoints []string
	PageCount int
	WordCount int

	// Content is the full extracted text. It backs the full-text index
	// and is replaced, never appended, on every reindex.
	Content string
}

// Chunk represents a searchable unit within a document.
type Chunk struct {
	// ID is derived from the document ID and Index.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Index is the ordinal position within the document.
	Index int

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	Metadata ChunkMetadata
}

// ChunkMetadata describes where a chunk sits in its document.
type ChunkMetadata struct {
	StartWord int `json:"start_word"`
	WordCount int `json:"word_count"`
	CharCount int `json:"char_count"`
}

// Tags is an ordered, de-duplicated set of lowercase labels.
type Tags []string

// NormaliseTags lowercases, trims and de-duplicates tags, keeping first-seen order.
func NormaliseTags(raw []string) Tags {
	seen := make(map[string]struct{}, len(raw))
	out := make(Tags, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Has reports whether the tag set contains tag (case-insensitive).
func (t Tags) Has(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, existing := range t {
		if existing == tag {
			return true
		}
	}
	return false
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Types  []DocumentType
	Tags   []string
	Limit  int
	Offset int
}

// ReassembleChunks joins ordered chunks back into document text, dropping
// the overlap each chunk repeats from its predecessor. Chunks are separated
// by a blank line.
func ReassembleChunks(chunks []Chunk) string {
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if i == 0 {
			parts = append(parts, c.Content)
			continue
		}
		prev := chunks[i-1].Metadata
		overlap := prev.StartWord + prev.WordCount - c.Metadata.StartWord
		if overlap < 0 {
			overlap = 0
		}
		parts = append(parts, StripLeadingWords(c.Content, overlap))
	}
	return strings.Join(parts, "\n\n")
}

// StripLeadingWords removes the first n words of s and the whitespace after
// them. Words are split on Unicode white space, as strings.Fields does.
func StripLeadingWords(s string, n int) string {
	rest := s
	for w := 0; w < n; w++ {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		rest = rest[end:]
	}
	return strings.TrimLeftFunc(rest, unicode.IsSpace)
}
