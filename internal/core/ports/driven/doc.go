// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the engine to function:
//
//   - Extractor: Turns a file on disk into text and metadata
//   - ExtractorRegistry: Detects the file type and dispatches to an Extractor
//   - DocumentStore: Document and chunk persistence
//   - FullTextIndex: Lexical search over documents (SQLite FTS5)
//   - GraphStore: Concept and relationship persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the engine degrades gracefully:
//
//   - VectorIndex: Vector storage/search. Only used when EmbeddingService is configured.
//   - EmbeddingService: Generates vector embeddings. Without it, search is lexical only.
//   - LLMService: Completions. Without it, summaries and concept extraction are skipped.
//   - GraphExporter: Mirrors the concept graph into an external graph database.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or postprocessor package
package driven
