package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/ids"
)

const conceptColumns = "c.id, c.name, c.type, c.description, c.frequency"

// graphStore implements driven.GraphStore.
type graphStore struct {
	store *Store
}

var _ driven.GraphStore = (*graphStore)(nil)

// ApplyExtraction records one slice's concepts atomically.
func (g *graphStore) ApplyExtraction(ctx context.Context, documentID string, concepts []domain.ExtractedConcept) error {
	merged := mergeConcepts(concepts)
	if len(merged) == 0 {
		return nil
	}

	tx, err := g.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDatabaseError("apply extraction", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", documentID).Scan(&exists)
	if isNoRows(err) {
		return domain.NewDatabaseError("apply extraction", fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound))
	}
	if err != nil {
		return domain.NewDatabaseError("apply extraction", err)
	}

	conceptIDs := make([]string, 0, len(merged))
	for _, c := range merged {
		id := ids.Concept(c.Name)
		conceptIDs = append(conceptIDs, id)

		var frequency int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO concepts (id, name, type, description, frequency)
			VALUES (?, ?, ?, ?, 1)
			ON CONFLICT(id) DO UPDATE SET
				frequency = concepts.frequency + 1,
				description = CASE WHEN concepts.description = '' THEN excluded.description
					ELSE concepts.description END
			RETURNING frequency
		`, id, strings.TrimSpace(c.Name), string(c.Type), strings.TrimSpace(c.Description)).Scan(&frequency)
		if err != nil {
			return domain.NewDatabaseError("apply extraction", fmt.Errorf("upserting concept %q: %w", c.Name, err))
		}

		if err := upsertEdge(ctx, tx, domain.Relationship{
			ID:               ids.Relationship(documentID, id, domain.RelContains),
			SourceID:         documentID,
			SourceType:       domain.EntityDocument,
			TargetID:         id,
			TargetType:       domain.EntityConcept,
			RelationshipType: domain.RelContains,
			Weight:           float64(frequency),
		}, "MAX(relationships.weight, excluded.weight)"); err != nil {
			return err
		}
	}

	for i := 0; i < len(conceptIDs); i++ {
		for j := i + 1; j < len(conceptIDs); j++ {
			src, tgt := ids.OrderedPair(conceptIDs[i], conceptIDs[j])
			if err := upsertEdge(ctx, tx, domain.Relationship{
				ID:               ids.Relationship(src, tgt, domain.RelRelated),
				SourceID:         src,
				SourceType:       domain.EntityConcept,
				TargetID:         tgt,
				TargetType:       domain.EntityConcept,
				RelationshipType: domain.RelRelated,
				Weight:           domain.RelatedInitialWeight,
			}, fmt.Sprintf("relationships.weight + %g", domain.RelatedWeightIncrement)); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewDatabaseError("apply extraction", fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// upsertEdge inserts rel or applies onConflict to the existing weight.
func upsertEdge(ctx context.Context, tx *sql.Tx, rel domain.Relationship, onConflict string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO relationships (id, source_id, source_type, target_id, target_type, relationship_type, weight)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET weight = `+onConflict, rel.ID, rel.SourceID, string(rel.SourceType),
		rel.TargetID, string(rel.TargetType), string(rel.RelationshipType), rel.Weight)
	if err != nil {
		return domain.NewDatabaseError("apply extraction",
			fmt.Errorf("upserting %s edge: %w", rel.RelationshipType, err))
	}
	return nil
}

// mergeConcepts drops empty names and collapses duplicates by concept ID,
// keeping the first type and first non-empty description.
func mergeConcepts(concepts []domain.ExtractedConcept) []domain.ExtractedConcept {
	index := make(map[string]int, len(concepts))
	out := make([]domain.ExtractedConcept, 0, len(concepts))
	for _, c := range concepts {
		if ids.NormaliseConceptName(c.Name) == "" {
			continue
		}
		c.Type = domain.ParseConceptType(string(c.Type))
		id := ids.Concept(c.Name)
		if i, ok := index[id]; ok {
			if out[i].Description == "" {
				out[i].Description = c.Description
			}
			continue
		}
		index[id] = len(out)
		out = append(out, c)
	}
	return out
}

// GetConcept retrieves a concept by ID.
func (g *graphStore) GetConcept(ctx context.Context, id string) (*domain.Concept, error) {
	row := g.store.db.QueryRowContext(ctx, "SELECT "+conceptColumns+" FROM concepts c WHERE c.id = ?", id)
	return scanConcept(row)
}

// ListConcepts returns concepts by descending frequency. A non-positive limit returns all.
func (g *graphStore) ListConcepts(ctx context.Context, limit int) ([]domain.Concept, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := g.store.db.QueryContext(ctx,
		"SELECT "+conceptColumns+" FROM concepts c ORDER BY c.frequency DESC, c.name LIMIT ?", limit)
	if err != nil {
		return nil, domain.NewDatabaseError("list concepts", err)
	}
	return collectConcepts(rows)
}

// ListRelationships returns every relationship at or above minWeight.
func (g *graphStore) ListRelationships(ctx context.Context, minWeight float64) ([]domain.Relationship, error) {
	rows, err := g.store.db.QueryContext(ctx, `
		SELECT id, source_id, source_type, target_id, target_type, relationship_type, weight
		FROM relationships WHERE weight >= ?
		ORDER BY weight DESC, id
	`, minWeight)
	if err != nil {
		return nil, domain.NewDatabaseError("list relationships", err)
	}
	defer rows.Close()

	var rels []domain.Relationship //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			rel                           domain.Relationship
			sourceType, targetType, relTy string
		)
		if err := rows.Scan(&rel.ID, &rel.SourceID, &sourceType, &rel.TargetID, &targetType,
			&relTy, &rel.Weight); err != nil {
			return nil, domain.NewDatabaseError("list relationships", err)
		}
		rel.SourceType = domain.EntityType(sourceType)
		rel.TargetType = domain.EntityType(targetType)
		rel.RelationshipType = domain.RelationshipType(relTy)
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDatabaseError("list relationships", err)
	}
	return rels, nil
}

// ConceptsForDocument returns the concepts a document CONTAINS.
func (g *graphStore) ConceptsForDocument(ctx context.Context, documentID string) ([]domain.Concept, error) {
	rows, err := g.store.db.QueryContext(ctx, `
		SELECT `+conceptColumns+`
		FROM concepts c
		JOIN relationships r ON r.target_id = c.id
		WHERE r.source_id = ? AND r.relationship_type = ?
		ORDER BY c.frequency DESC, c.name
	`, documentID, string(domain.RelContains))
	if err != nil {
		return nil, domain.NewDatabaseError("document concepts", err)
	}
	return collectConcepts(rows)
}

// DocumentsSharingConcepts ranks other documents by shared concept count.
func (g *graphStore) DocumentsSharingConcepts(
	ctx context.Context,
	documentID string,
	limit int,
) ([]driven.SharedConcepts, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := g.store.db.QueryContext(ctx, `
		SELECT other.source_id, COUNT(*) AS shared
		FROM relationships mine
		JOIN relationships other ON other.target_id = mine.target_id
		WHERE mine.source_id = ?
			AND mine.relationship_type = ?
			AND other.relationship_type = ?
			AND other.source_id <> mine.source_id
		GROUP BY other.source_id
		ORDER BY shared DESC, other.source_id
		LIMIT ?
	`, documentID, string(domain.RelContains), string(domain.RelContains), limit)
	if err != nil {
		return nil, domain.NewDatabaseError("shared concepts", err)
	}
	defer rows.Close()

	var out []driven.SharedConcepts //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sc driven.SharedConcepts
		if err := rows.Scan(&sc.DocumentID, &sc.Shared); err != nil {
			return nil, domain.NewDatabaseError("shared concepts", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDatabaseError("shared concepts", err)
	}
	return out, nil
}

func collectConcepts(rows *sql.Rows) ([]domain.Concept, error) {
	defer rows.Close()

	var concepts []domain.Concept //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDatabaseError("scan concepts", err)
	}
	return concepts, nil
}

func scanConcept(row rowScanner) (*domain.Concept, error) {
	var (
		c           domain.Concept
		conceptType string
	)
	if err := row.Scan(&c.ID, &c.Name, &conceptType, &c.Description, &c.Frequency); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewDatabaseError("scan concept", err)
	}
	c.Type = domain.ConceptType(conceptType)
	return &c, nil
}
