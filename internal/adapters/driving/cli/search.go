package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/engine"
)

var (
	searchLimit        int
	searchOffset       int
	searchSemantic     bool
	searchTypes        []string
	searchTags         []string
	searchFrom         string
	searchTo           string
	searchMinRelevance float64
	searchJSON         bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Search indexed documents by keyword, ranked with BM25.

With --semantic the query is embedded and matched against chunk vectors
as well; semantic hits are merged with keyword hits. When no embedding
provider is available the search falls back to keywords only.

Dates use YYYY-MM-DD and filter on the file modification time.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	f.IntVar(&searchOffset, "offset", 0, "skip this many results")
	f.BoolVarP(&searchSemantic, "semantic", "s", false, "include semantic matches")
	f.StringSliceVarP(&searchTypes, "types", "t", nil, "only these document types")
	f.StringSliceVar(&searchTags, "tags", nil, "only documents carrying every tag")
	f.StringVar(&searchFrom, "from", "", "modified on or after this date")
	f.StringVar(&searchTo, "to", "", "modified on or before this date")
	f.Float64Var(&searchMinRelevance, "min-relevance", 0, "drop results below this relevance (0-1)")
	f.BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	opts, err := searchOptions()
	if err != nil {
		return err
	}

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		results, err := e.SearchDocuments(ctx, query, opts)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if searchJSON {
			return printJSON(cmd, results)
		}
		outputSearchTable(cmd, results)
		return nil
	})
}

func searchOptions() (domain.SearchOptions, error) {
	opts := domain.SearchOptions{
		Limit:             searchLimit,
		Offset:            searchOffset,
		UseSemanticSearch: searchSemantic,
		Tags:              searchTags,
		MinRelevance:      searchMinRelevance,
	}

	types, err := domain.ParseDocumentTypes(searchTypes)
	if err != nil {
		return opts, err
	}
	opts.Types = types

	if opts.DateFrom, err = parseDate(searchFrom, false); err != nil {
		return opts, err
	}
	if opts.DateTo, err = parseDate(searchTo, true); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. A bare date used as an upper
// bound covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", domain.ErrInvalidInput, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]
		title := r.Title
		if title == "" {
			title = r.DocumentID
		}

		cmd.Printf("  [%d] %s (%.2f, %s)\n", i+1, title, r.Relevance, r.Metadata.MatchType)
		cmd.Printf("      %s\n", r.Path)
		if r.Snippet != "" {
			cmd.Printf("      %s\n", strings.Join(strings.Fields(r.Snippet), " "))
		}
		cmd.Printf("      ID: %s\n", r.DocumentID)
		cmd.Println()
	}
}
