package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

const documentColumns = `d.id, d.path, d.title, d.type, d.size, d.author, d.tags, d.summary,
	d.key_points, d.page_count, d.word_count, d.content, d.created_at, d.modified_at, d.indexed_at`

const chunkColumns = `id, document_id, chunk_index, content, embedding, metadata`

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument upserts doc and replaces its chunks and CONTAINS edges.
// The existing created time is preserved and written back to doc.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tags, err := encodeStrings(doc.Tags)
	if err != nil {
		return domain.NewDatabaseError("save document", err)
	}
	keyPoints, err := encodeStrings(doc.KeyPoints)
	if err != nil {
		return domain.NewDatabaseError("save document", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDatabaseError("save document", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	var created int64
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM documents WHERE id = ?", doc.ID).Scan(&created)
	switch {
	case isNoRows(err):
		if doc.Created.IsZero() {
			doc.Created = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (id, path, title, type, size, author, tags, summary, key_points,
				page_count, word_count, content, created_at, modified_at, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.ID, doc.Path, doc.Title, string(doc.Type), doc.Size, doc.Author, tags, doc.Summary,
			keyPoints, doc.PageCount, doc.WordCount, doc.Content,
			toUnix(doc.Created), toUnix(doc.Modified), toUnix(doc.Indexed))
		if err != nil {
			return domain.NewDatabaseError("save document", fmt.Errorf("inserting document: %w", err))
		}
	case err != nil:
		return domain.NewDatabaseError("save document", fmt.Errorf("checking document: %w", err))
	default:
		doc.Created = fromUnix(created)
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET path = ?, title = ?, type = ?, size = ?, author = ?, tags = ?,
				summary = ?, key_points = ?, page_count = ?, word_count = ?, content = ?,
				modified_at = ?, indexed_at = ?
			WHERE id = ?
		`, doc.Path, doc.Title, string(doc.Type), doc.Size, doc.Author, tags,
			doc.Summary, keyPoints, doc.PageCount, doc.WordCount, doc.Content,
			toUnix(doc.Modified), toUnix(doc.Indexed), doc.ID)
		if err != nil {
			return domain.NewDatabaseError("save document", fmt.Errorf("updating document: %w", err))
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM relationships WHERE source_id = ? AND relationship_type = ?",
		doc.ID, string(domain.RelContains)); err != nil {
		return domain.NewDatabaseError("save document", fmt.Errorf("clearing concept links: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE document_id = ?", doc.ID); err != nil {
		return domain.NewDatabaseError("save document", fmt.Errorf("clearing chunks: %w", err))
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO document_chunks (id, document_id, chunk_index, content, embedding, metadata)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return domain.NewDatabaseError("save document", fmt.Errorf("preparing statement: %w", err))
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			if chunk.DocumentID != doc.ID {
				return domain.NewDatabaseError("save document",
					fmt.Errorf("chunk %s belongs to %s: %w", chunk.ID, chunk.DocumentID, domain.ErrInvalidInput))
			}
			metadataJSON, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return domain.NewDatabaseError("save document", fmt.Errorf("marshalling chunk metadata: %w", err))
			}
			if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Index, chunk.Content,
				float32SliceToBytes(chunk.Embedding), string(metadataJSON)); err != nil {
				return domain.NewDatabaseError("save document", fmt.Errorf("saving chunk %d: %w", chunk.Index, err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewDatabaseError("save document", fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents d WHERE d.id = ?", id)
	return scanDocument(row)
}

// GetDocumentByPath retrieves a document by its file path.
func (s *documentStore) GetDocumentByPath(ctx context.Context, path string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents d WHERE d.path = ?", path)
	return scanDocument(row)
}

// GetChunks retrieves all chunks for a document.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM document_chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, domain.NewDatabaseError("get chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDatabaseError("get chunks", err)
	}
	return chunks, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM document_chunks WHERE id = ?", id)
	return scanChunk(row)
}

// ChunkIDs returns the IDs of a document's chunks in index order.
func (s *documentStore) ChunkIDs(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id FROM document_chunks WHERE document_id = ? ORDER BY chunk_index", documentID)
	if err != nil {
		return nil, domain.NewDatabaseError("chunk ids", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.NewDatabaseError("chunk ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDatabaseError("chunk ids", err)
	}
	return ids, nil
}

// DeleteDocument removes a document with its chunks and CONTAINS edges.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return false, domain.NewDatabaseError("delete document", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", id).Scan(&exists)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewDatabaseError("delete document", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM relationships WHERE source_id = ? AND relationship_type = ?",
		id, string(domain.RelContains)); err != nil {
		return false, domain.NewDatabaseError("delete document", fmt.Errorf("deleting concept links: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE document_id = ?", id); err != nil {
		return false, domain.NewDatabaseError("delete document", fmt.Errorf("deleting chunks: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return false, domain.NewDatabaseError("delete document", err)
	}

	if err := tx.Commit(); err != nil {
		return false, domain.NewDatabaseError("delete document", fmt.Errorf("committing transaction: %w", err))
	}
	return true, nil
}

// ListDocuments returns documents matching the filter, most recently modified first.
func (s *documentStore) ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Types) > 0 {
		where = append(where, "d.type IN ("+placeholders(len(filter.Types))+")")
		args = append(args, typeArgs(filter.Types)...)
	}
	if tags := domain.NormaliseTags(filter.Tags); len(tags) > 0 {
		where = append(where, tagPredicate(len(tags)))
		for _, t := range tags {
			args = append(args, t)
		}
	}

	query := "SELECT " + documentColumns + " FROM documents d"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY d.modified_at DESC, d.id LIMIT ? OFFSET ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewDatabaseError("list documents", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDatabaseError("list documents", err)
	}
	return docs, nil
}

// CountDocuments returns the number of indexed documents.
func (s *documentStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, domain.NewDatabaseError("count documents", err)
	}
	return n, nil
}

// EachEmbedding streams embedded chunks in insertion order.
func (s *documentStore) EachEmbedding(
	ctx context.Context,
	types []domain.DocumentType,
	fn func(driven.EmbeddedChunk) error,
) error {
	query := `
		SELECT c.id, c.document_id, c.chunk_index, d.type, c.embedding
		FROM document_chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL`
	var args []any
	if len(types) > 0 {
		query += " AND d.type IN (" + placeholders(len(types)) + ")"
		args = typeArgs(types)
	}
	query += " ORDER BY c.rowid"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.NewDatabaseError("scan embeddings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ec      driven.EmbeddedChunk
			docType string
			blob    []byte
		)
		if err := rows.Scan(&ec.ID, &ec.DocumentID, &ec.ChunkIndex, &docType, &blob); err != nil {
			return domain.NewDatabaseError("scan embeddings", err)
		}
		ec.Type = domain.DocumentType(docType)
		ec.Embedding = bytesToFloat32Slice(blob)
		if len(ec.Embedding) == 0 {
			continue
		}
		if err := fn(ec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return domain.NewDatabaseError("scan embeddings", err)
	}
	return nil
}

// tagPredicate matches documents carrying any of n tags.
func tagPredicate(n int) string {
	return "EXISTS (SELECT 1 FROM json_each(d.tags) WHERE json_each.value IN (" + placeholders(n) + "))"
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc                          domain.Document
		docType, tags, keyPoints     string
		created, modified, indexedAt int64
	)

	if err := row.Scan(&doc.ID, &doc.Path, &doc.Title, &docType, &doc.Size, &doc.Author, &tags,
		&doc.Summary, &keyPoints, &doc.PageCount, &doc.WordCount, &doc.Content,
		&created, &modified, &indexedAt); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewDatabaseError("scan document", err)
	}

	doc.Type = domain.DocumentType(docType)
	doc.Created = fromUnix(created)
	doc.Modified = fromUnix(modified)
	doc.Indexed = fromUnix(indexedAt)

	decodedTags, err := decodeStrings(tags, "tags")
	if err != nil {
		return nil, domain.NewDatabaseError("scan document", err)
	}
	doc.Tags = domain.Tags(decodedTags)

	if doc.KeyPoints, err = decodeStrings(keyPoints, "key points"); err != nil {
		return nil, domain.NewDatabaseError("scan document", err)
	}

	return &doc, nil
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var (
		chunk        domain.Chunk
		blob         []byte
		metadataJSON sql.NullString
	)

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content,
		&blob, &metadataJSON); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewDatabaseError("scan chunk", err)
	}

	chunk.Embedding = bytesToFloat32Slice(blob)

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &chunk.Metadata); err != nil {
			return nil, domain.NewDatabaseError("scan chunk", fmt.Errorf("unmarshaling metadata: %w", err))
		}
	}

	return &chunk, nil
}
