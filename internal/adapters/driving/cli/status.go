package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kindex/internal/engine"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index size and provider availability",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		s, err := e.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to read status: %w", err)
		}
		if statusJSON {
			return printJSON(cmd, s)
		}

		cmd.Println("Knowledge base")
		cmd.Printf("  Database:        %s\n", s.Database)
		cmd.Printf("  Documents:       %d\n", s.Documents)
		cmd.Printf("  Semantic search: %s\n", enabled(s.SemanticSearch, s.EmbeddingModel))
		if s.SemanticSearch {
			cmd.Printf("  Vector backend:  %s\n", s.VectorBackend)
		}
		cmd.Printf("  Concept graph:   %s\n", enabled(s.ConceptGraph, s.LLMModel))
		cmd.Printf("  Neo4j export:    %s\n", enabled(s.Neo4jConfigured, ""))

		if len(s.ProviderWarnings) > 0 {
			cmd.Println("\nWarnings:")
			for _, w := range s.ProviderWarnings {
				cmd.Printf("  - %s\n", w)
			}
		}
		return nil
	})
}

func enabled(on bool, detail string) string {
	switch {
	case !on:
		return "disabled"
	case detail != "":
		return "enabled (" + detail + ")"
	default:
		return "enabled"
	}
}
