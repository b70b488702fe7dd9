// Package ids derives stable identifiers for documents, chunks, concepts and
// relationships. All IDs are name-based UUIDs (version 5), so the same input
// always yields the same ID and IDs are valid Qdrant point IDs.
package ids

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// Namespaces keep the ID spaces disjoint.
var (
	documentNS     = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kindex:document"))
	chunkNS        = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kindex:chunk"))
	conceptNS      = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kindex:concept"))
	relationshipNS = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kindex:relationship"))
)

// CanonicalPath returns the absolute, cleaned form of path.
func CanonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Document returns the ID for the file at path.
func Document(path string) string {
	return uuid.NewSHA1(documentNS, []byte(CanonicalPath(path))).String()
}

// Chunk returns the ID for the index-th chunk of a document.
func Chunk(documentID string, index int) string {
	return uuid.NewSHA1(chunkNS, []byte(documentID+"#"+strconv.Itoa(index))).String()
}

// NormaliseConceptName folds a concept name for identity comparisons.
func NormaliseConceptName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Concept returns the ID for a concept name. Case and spacing are ignored.
func Concept(name string) string {
	return uuid.NewSHA1(conceptNS, []byte(NormaliseConceptName(name))).String()
}

// Relationship returns the ID for an edge.
func Relationship(sourceID, targetID string, relType domain.RelationshipType) string {
	return uuid.NewSHA1(relationshipNS, []byte(sourceID+"|"+targetID+"|"+string(relType))).String()
}

// OrderedPair returns a and b with the lexically smaller first.
func OrderedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// NewRunID returns a random ID for an indexing run.
func NewRunID() string {
	return uuid.NewString()
}
