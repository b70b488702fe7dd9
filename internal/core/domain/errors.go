package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrKnowledgeBase is the root of every engine error. All typed errors
	// below report errors.Is(err, ErrKnowledgeBase) == true.
	ErrKnowledgeBase = errors.New("knowledge base error")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates a file whose format cannot be extracted.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrIndexingInProgress indicates a directory run is already active.
	ErrIndexingInProgress = errors.New("indexing in progress")

	// ErrAlreadyWatching indicates the path already has an active watcher.
	ErrAlreadyWatching = errors.New("already watching")

	// ErrLLMUnavailable indicates the completion service is not configured.
	// Summaries, key points and concept extraction are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRateLimited indicates a collaborator rejected the call for rate reasons.
	ErrRateLimited = errors.New("rate limited")
)

// KnowledgeBaseError is the general engine error carrying the failing operation.
type KnowledgeBaseError struct {
	Op  string
	Err error
}

func (e *KnowledgeBaseError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *KnowledgeBaseError) Unwrap() error { return e.Err }

// Is makes every KnowledgeBaseError match ErrKnowledgeBase.
func (e *KnowledgeBaseError) Is(target error) bool { return target == ErrKnowledgeBase }

// FileProcessingError reports a file that could not be read or extracted.
type FileProcessingError struct {
	Path string
	Err  error
}

// NewFileProcessingError wraps err for path.
func NewFileProcessingError(path string, err error) *FileProcessingError {
	return &FileProcessingError{Path: path, Err: err}
}

func (e *FileProcessingError) Error() string {
	return fmt.Sprintf("processing %s: %v", e.Path, e.Err)
}

func (e *FileProcessingError) Unwrap() error { return e.Err }

// Is makes every FileProcessingError match ErrKnowledgeBase.
func (e *FileProcessingError) Is(target error) bool { return target == ErrKnowledgeBase }

// DatabaseError reports a storage failure.
type DatabaseError struct {
	Op  string
	Err error
}

// NewDatabaseError wraps err for op.
func NewDatabaseError(op string, err error) *DatabaseError {
	return &DatabaseError{Op: op, Err: err}
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// Is makes every DatabaseError match ErrKnowledgeBase.
func (e *DatabaseError) Is(target error) bool { return target == ErrKnowledgeBase }

// EmbeddingError reports a failed embedding call.
type EmbeddingError struct {
	Err error
}

// NewEmbeddingError wraps err.
func NewEmbeddingError(err error) *EmbeddingError {
	return &EmbeddingError{Err: err}
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Is makes every EmbeddingError match ErrKnowledgeBase.
func (e *EmbeddingError) Is(target error) bool { return target == ErrKnowledgeBase }
