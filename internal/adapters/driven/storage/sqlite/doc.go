// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements several store interfaces
// through a single database connection:
//
//   - DocumentStore: Document and chunk persistence, embeddings as BLOBs
//   - FullTextIndex: FTS5 search over title, content, tags and summary
//   - GraphStore: Concepts and weighted relationships
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// The documents_fts table is an external-content FTS5 index kept in step with
// documents by triggers, so every document write refreshes the index.
//
// # Data Location
//
// By default, the database is stored at ~/.kindex/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Each document save, delete and concept extraction runs
// in its own transaction.
package sqlite
