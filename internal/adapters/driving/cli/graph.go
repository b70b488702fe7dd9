package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/engine"
)

var (
	graphCenter    string
	graphDepth     int
	graphLimit     int
	graphMinWeight float64
	graphDocuments bool
	graphJSON      bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the concept graph",
	Long: `Show concepts extracted from indexed documents and how they relate.

Without --center the most frequent concepts are shown. With --center the
graph is walked breadth-first from a concept or document ID.`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

var graphExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the concept graph to Neo4j",
	Long: `Mirror the selected part of the concept graph into the Neo4j database
configured under graph.neo4j in config.toml. Nodes and relationships are
merged, so repeated exports are safe.`,
	Args: cobra.NoArgs,
	RunE: runGraphExport,
}

func init() {
	f := graphCmd.PersistentFlags()
	f.StringVar(&graphCenter, "center", "", "concept or document ID to start from")
	f.IntVar(&graphDepth, "depth", domain.DefaultGraphDepth, "walk depth from --center")
	f.IntVarP(&graphLimit, "limit", "n", domain.DefaultGraphLimit, "maximum number of nodes")
	f.Float64Var(&graphMinWeight, "min-weight", 0, "hide edges lighter than this")
	f.BoolVar(&graphDocuments, "documents", false, "include document nodes")
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "output the graph as JSON")

	graphCmd.AddCommand(graphExportCmd)
	rootCmd.AddCommand(graphCmd)
}

func graphOptions() domain.GraphOptions {
	return domain.GraphOptions{
		CenterID:         graphCenter,
		Depth:            graphDepth,
		Limit:            graphLimit,
		MinWeight:        graphMinWeight,
		IncludeDocuments: graphDocuments,
	}
}

func runGraph(cmd *cobra.Command, _ []string) error {
	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		kg, err := e.GetKnowledgeGraph(ctx, graphOptions())
		if err != nil {
			return fmt.Errorf("failed to load graph: %w", err)
		}
		if graphJSON {
			return printJSON(cmd, kg)
		}
		outputGraph(cmd, kg)
		return nil
	})
}

func outputGraph(cmd *cobra.Command, kg *domain.KnowledgeGraph) {
	if len(kg.Nodes) == 0 {
		cmd.Println("No concepts found.")
		return
	}

	labels := make(map[string]string, len(kg.Nodes))
	cmd.Printf("Nodes (%d):\n", len(kg.Nodes))
	for _, n := range kg.Nodes {
		labels[n.ID] = n.Label
		cmd.Printf("  %-10s %s (%.0f)\n", n.Kind, n.Label, n.Weight)
	}

	if len(kg.Edges) == 0 {
		return
	}
	cmd.Printf("\nEdges (%d):\n", len(kg.Edges))
	for _, edge := range kg.Edges {
		cmd.Printf("  %s -[%s %.1f]- %s\n", label(labels, edge.Source), edge.Type, edge.Weight, label(labels, edge.Target))
	}
}

func label(labels map[string]string, id string) string {
	if l, ok := labels[id]; ok && l != "" {
		return l
	}
	return id
}

func runGraphExport(cmd *cobra.Command, _ []string) error {
	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		kg, err := e.ExportGraph(ctx, graphOptions())
		if err != nil {
			return fmt.Errorf("failed to export graph: %w", err)
		}
		cmd.Printf("Exported %d nodes and %d edges to Neo4j.\n", len(kg.Nodes), len(kg.Edges))
		return nil
	})
}
