// Package neo4j mirrors knowledge graph snapshots into a Neo4j database.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// Ensure Exporter implements the interface.
var _ driven.GraphExporter = (*Exporter)(nil)

// DefaultDatabase is used when Config.Database is empty.
const DefaultDatabase = "neo4j"

// batchSize bounds the rows sent in one UNWIND statement.
const batchSize = 500

// Config holds Neo4j connection configuration.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Exporter writes graph snapshots with idempotent MERGE statements.
type Exporter struct {
	driver   neo4j.DriverWithContext
	database string
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j: uri is required: %w", domain.ErrInvalidInput)
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = DefaultDatabase
	}
	return &Exporter{driver: driver, database: database}, nil
}

// Close closes the Neo4j connection.
func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// Export merges every node and edge of graph. Nodes carry a :Document or
// :Concept label; edges use the relationship type as the Neo4j type.
func (e *Exporter) Export(ctx context.Context, graph *domain.KnowledgeGraph) error {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: e.database})
	defer session.Close(ctx)

	docs, concepts := nodeRows(graph.Nodes)
	contains, related := edgeRows(graph.Edges)

	statements := []struct {
		query string
		rows  []map[string]any
	}{
		{mergeDocuments, docs},
		{mergeConcepts, concepts},
		{mergeContains, contains},
		{mergeRelated, related},
	}

	for _, st := range statements {
		for _, batch := range batches(st.rows, batchSize) {
			_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				result, err := tx.Run(ctx, st.query, map[string]any{"rows": batch})
				if err != nil {
					return nil, err
				}
				return result.Consume(ctx)
			})
			if err != nil {
				return fmt.Errorf("neo4j export: %w", err)
			}
		}
	}
	return nil
}

const (
	mergeDocuments = `
		UNWIND $rows AS row
		MERGE (d:Document {id: row.id})
		SET d.title = row.label`

	mergeConcepts = `
		UNWIND $rows AS row
		MERGE (c:Concept {id: row.id})
		SET c.name = row.label, c.type = row.kind, c.frequency = row.weight`

	mergeContains = `
		UNWIND $rows AS row
		MATCH (d:Document {id: row.source})
		MATCH (c:Concept {id: row.target})
		MERGE (d)-[r:CONTAINS]->(c)
		SET r.weight = row.weight`

	mergeRelated = `
		UNWIND $rows AS row
		MATCH (a:Concept {id: row.source})
		MATCH (b:Concept {id: row.target})
		MERGE (a)-[r:RELATED]->(b)
		SET r.weight = row.weight`
)

// nodeRows splits nodes into document and concept parameter rows.
func nodeRows(nodes []domain.GraphNode) (docs, concepts []map[string]any) {
	for _, n := range nodes {
		row := map[string]any{
			"id":     n.ID,
			"label":  n.Label,
			"kind":   string(n.Kind),
			"weight": n.Weight,
		}
		if n.Kind == domain.NodeDocument {
			docs = append(docs, row)
		} else {
			concepts = append(concepts, row)
		}
	}
	return docs, concepts
}

// edgeRows splits edges by relationship type.
func edgeRows(edges []domain.GraphEdge) (contains, related []map[string]any) {
	for _, e := range edges {
		row := map[string]any{
			"source": e.Source,
			"target": e.Target,
			"weight": e.Weight,
		}
		switch e.Type {
		case domain.RelContains:
			contains = append(contains, row)
		case domain.RelRelated:
			related = append(related, row)
		}
	}
	return contains, related
}

func batches(rows []map[string]any, size int) [][]map[string]any {
	var out [][]map[string]any
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}
