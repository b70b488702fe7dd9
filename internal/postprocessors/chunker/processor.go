// Package chunker provides a paragraph-aware text chunking processor.
package chunker

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/ids"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of words carried into the next chunk.
const DefaultChunkOverlap = domain.DefaultChunkOverlapWords

const paragraphSeparator = "\n\n"

var paragraphBoundary = regexp.MustCompile(`\n\s*\n`)

// Processor splits document content into overlapping chunks on paragraph
// boundaries. It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the number of words repeated at the start of the next chunk.
func WithOverlap(words int) Option {
	return func(p *Processor) {
		if words >= 0 {
			p.overlap = words
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	pieces := Split(doc.Content, p.chunkSize, p.overlap)
	if len(pieces) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:         ids.Chunk(doc.ID, i),
			DocumentID: doc.ID,
			Content:    piece.Text,
			Index:      i,
			Metadata: domain.ChunkMetadata{
				StartWord: piece.StartWord,
				WordCount: piece.WordCount,
				CharCount: utf8.RuneCountInString(piece.Text),
			},
		})
	}

	return chunks, nil
}

// Piece is one chunk of text produced by Split.
type Piece struct {
	Text string

	// StartWord is the word offset of the first word in the document,
	// counting overlap words at their original position.
	StartWord int
	WordCount int

	// OverlapWords is how many leading words repeat the previous piece.
	OverlapWords int
}

// Split accumulates paragraphs into chunks of at most size characters.
// When a paragraph would overflow a non-empty buffer, the buffer is emitted
// and the next one starts with the last overlap words of the emitted chunk
// followed by that paragraph. A single paragraph longer than size becomes
// its own chunk.
func Split(text string, size, overlap int) []Piece {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	var pieces []Piece
	var buf strings.Builder
	bufOverlap := 0
	consumed := 0

	emit := func() {
		content := buf.String()
		words := len(strings.Fields(content))
		pieces = append(pieces, Piece{
			Text:         content,
			StartWord:    consumed - bufOverlap,
			WordCount:    words,
			OverlapWords: bufOverlap,
		})
		consumed += words - bufOverlap
	}

	for _, para := range paragraphBoundary.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if buf.Len() > 0 &&
			utf8.RuneCountInString(buf.String())+len(paragraphSeparator)+utf8.RuneCountInString(para) > size {
			emit()
			tail := lastWords(buf.String(), overlap)
			buf.Reset()
			bufOverlap = len(tail)
			if bufOverlap > 0 {
				buf.WriteString(strings.Join(tail, " "))
				buf.WriteString(paragraphSeparator)
			}
			buf.WriteString(para)
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString(paragraphSeparator)
		}
		buf.WriteString(para)
	}

	if strings.TrimSpace(buf.String()) != "" {
		emit()
	}

	return pieces
}

// lastWords returns up to n trailing whitespace-separated words of s.
func lastWords(s string, n int) []string {
	if n == 0 {
		return nil
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return words
	}
	return words[len(words)-n:]
}
