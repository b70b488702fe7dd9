package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/engine"
)

const timeLayout = "2006-01-02 15:04:05"

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage indexed documents",
	Long:    `List, inspect, read, reindex, open or remove indexed documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document details",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentSimilarCmd = &cobra.Command{
	Use:   "similar [doc-id]",
	Short: "Find documents similar to one",
	Long: `Find documents similar to the given one. Uses embeddings when available,
otherwise documents that share the most concepts.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentSimilar,
}

var documentDeleteCmd = &cobra.Command{
	Use:     "delete [doc-id]",
	Aliases: []string{"rm"},
	Short:   "Remove a document from the index",
	Long:    `Removes the document, its chunks, vectors and graph links. The file itself is untouched.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDocumentDelete,
}

var documentRefreshCmd = &cobra.Command{
	Use:   "refresh [doc-id]",
	Short: "Reindex a single document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentRefresh,
}

var documentOpenCmd = &cobra.Command{
	Use:   "open [doc-id]",
	Short: "Open document in default application",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentOpen,
}

var (
	docListTypes  []string
	docListTags   []string
	docListLimit  int
	docListOffset int
	docJSON       bool
	similarLimit  int
)

func init() {
	documentListCmd.Flags().StringSliceVarP(&docListTypes, "types", "t", nil, "only these document types")
	documentListCmd.Flags().StringSliceVar(&docListTags, "tags", nil, "only documents carrying every tag")
	documentListCmd.Flags().IntVarP(&docListLimit, "limit", "n", 50, "maximum number of documents")
	documentListCmd.Flags().IntVar(&docListOffset, "offset", 0, "skip this many documents")
	documentSimilarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 5, "maximum number of results")
	documentCmd.PersistentFlags().BoolVar(&docJSON, "json", false, "output as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentSimilarCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentRefreshCmd)
	documentCmd.AddCommand(documentOpenCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	types, err := domain.ParseDocumentTypes(docListTypes)
	if err != nil {
		return err
	}
	filter := domain.DocumentFilter{Types: types, Tags: docListTags, Limit: docListLimit, Offset: docListOffset}

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		docs, err := e.ListDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if docJSON {
			return printJSON(cmd, docs)
		}

		if len(docs) == 0 {
			cmd.Println("No documents indexed.")
			return nil
		}
		for i := range docs {
			cmd.Printf("  %s\n", docs[i].ID)
			cmd.Printf("    Title: %s (%s)\n", docs[i].Title, docs[i].Type)
			cmd.Printf("    Path:  %s\n", docs[i].Path)
			if len(docs[i].Tags) > 0 {
				cmd.Printf("    Tags:  %v\n", []string(docs[i].Tags))
			}
			cmd.Println()
		}
		cmd.Printf("Total: %d documents\n", len(docs))
		return nil
	})
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	docID := args[0]

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		details, err := e.GetDocumentDetails(ctx, docID)
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}
		if docJSON {
			return printJSON(cmd, details)
		}

		cmd.Printf("Document: %s\n\n", details.ID)
		cmd.Printf("  Title:    %s\n", details.Title)
		cmd.Printf("  Path:     %s\n", details.Path)
		cmd.Printf("  Type:     %s\n", details.Type)
		cmd.Printf("  Size:     %d bytes\n", details.Size)
		cmd.Printf("  Chunks:   %d\n", details.ChunkCount)
		cmd.Printf("  Created:  %s\n", details.Created.Format(timeLayout))
		cmd.Printf("  Modified: %s\n", details.Modified.Format(timeLayout))
		cmd.Printf("  Indexed:  %s\n", details.Indexed.Format(timeLayout))

		if len(details.Concepts) > 0 {
			cmd.Println("\n  Concepts:")
			for _, c := range details.Concepts {
				cmd.Printf("    - %s\n", c)
			}
		}

		if len(details.Metadata) > 0 {
			cmd.Println("\n  Metadata:")
			keys := make([]string, 0, len(details.Metadata))
			for k := range details.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				cmd.Printf("    %s: %s\n", k, details.Metadata[k])
			}
		}
		return nil
	})
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	docID := args[0]

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		content, err := e.GetDocumentContent(ctx, docID)
		if err != nil {
			return fmt.Errorf("failed to get document content: %w", err)
		}
		cmd.Println(content)
		return nil
	})
}

func runDocumentSimilar(cmd *cobra.Command, args []string) error {
	docID := args[0]

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		results, err := e.GetSimilarDocuments(ctx, docID, similarLimit)
		if err != nil {
			return fmt.Errorf("failed to find similar documents: %w", err)
		}
		if docJSON {
			return printJSON(cmd, results)
		}
		outputSearchTable(cmd, results)
		return nil
	})
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	docID := args[0]

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		removed, err := e.DeleteDocument(ctx, docID)
		if err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		if !removed {
			return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
		}
		cmd.Printf("Document %s removed from index.\n", docID)
		return nil
	})
}

func runDocumentRefresh(cmd *cobra.Command, args []string) error {
	docID := args[0]

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		doc, err := e.GetDocument(ctx, docID)
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}
		if doc == nil {
			return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
		}

		cmd.Printf("Refreshing document %s...\n", docID)
		opts := e.IndexOptions()
		opts.Tags = doc.Tags
		if _, err := e.IndexDocument(ctx, doc.Path, opts); err != nil {
			return fmt.Errorf("failed to refresh document: %w", err)
		}
		cmd.Printf("Document %s refreshed successfully.\n", docID)
		return nil
	})
}

func runDocumentOpen(cmd *cobra.Command, args []string) error {
	docID := args[0]

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		if err := e.OpenDocument(ctx, docID); err != nil {
			return fmt.Errorf("failed to open document: %w", err)
		}
		cmd.Printf("Opened document %s in default application.\n", docID)
		return nil
	})
}
