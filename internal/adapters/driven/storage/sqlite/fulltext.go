package sqlite

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// bm25 column weights for title, content, tags and summary.
const bm25Weights = "10.0, 1.0, 5.0, 2.0"

// fullTextIndex implements driven.FullTextIndex over documents_fts.
type fullTextIndex struct {
	store *Store
}

var _ driven.FullTextIndex = (*fullTextIndex)(nil)

// SearchFullText runs a BM25-ranked FTS5 query with filters applied in SQL.
func (f *fullTextIndex) SearchFullText(
	ctx context.Context,
	query string,
	opts driven.FullTextOptions,
) ([]driven.FullTextHit, error) {
	terms := QueryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	where := []string{"documents_fts MATCH ?"}
	args := []any{MatchExpression(terms)}

	if len(opts.Types) > 0 {
		where = append(where, "d.type IN ("+placeholders(len(opts.Types))+")")
		args = append(args, typeArgs(opts.Types)...)
	}
	if opts.From != nil {
		where = append(where, "d.modified_at >= ?")
		args = append(args, toUnix(*opts.From))
	}
	if opts.To != nil {
		where = append(where, "d.modified_at <= ?")
		args = append(args, toUnix(*opts.To))
	}
	if tags := domain.NormaliseTags(opts.Tags); len(tags) > 0 {
		where = append(where, tagPredicate(len(tags)))
		for _, t := range tags {
			args = append(args, t)
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	args = append(args, limit, max(opts.Offset, 0))

	rows, err := f.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+`, bm25(documents_fts, `+bm25Weights+`) AS rank
		FROM documents_fts
		JOIN documents d ON d.seq = documents_fts.rowid
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY rank, d.id
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, domain.NewDatabaseError("full-text search", err)
	}

	var hits []driven.FullTextHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			hit  driven.FullTextHit
			rank float64
		)
		doc, err := scanDocument(rankedRow{rows: rows, rank: &rank})
		if err != nil {
			rows.Close()
			return nil, err
		}
		hit.Document = *doc
		hit.Rank = rank
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, domain.NewDatabaseError("full-text search", err)
	}
	rows.Close()

	docs := f.store.DocumentStore()
	for i := range hits {
		chunks, err := docs.GetChunks(ctx, hits[i].Document.ID)
		if err != nil {
			return nil, err
		}
		hits[i].Chunk = firstMatchingChunk(chunks, terms)
	}

	return hits, nil
}

// rankedRow appends the rank column to a document scan.
type rankedRow struct {
	rows rowScanner
	rank *float64
}

func (r rankedRow) Scan(dest ...any) error {
	return r.rows.Scan(append(dest, r.rank)...)
}

// QueryTerms splits a free-text query into lowercase word terms,
// dropping FTS5 syntax characters.
func QueryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// MatchExpression quotes each term and joins them with OR.
func MatchExpression(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// firstMatchingChunk returns the lowest-index chunk containing any term.
func firstMatchingChunk(chunks []domain.Chunk, terms []string) *domain.Chunk {
	for i := range chunks {
		lower := strings.ToLower(chunks[i].Content)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				c := chunks[i]
				return &c
			}
		}
	}
	if len(chunks) > 0 {
		c := chunks[0]
		return &c
	}
	return nil
}
