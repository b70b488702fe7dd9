package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/engine"
)

// indexFlags are shared by index and watch. Unset flags keep the
// configured defaults.
type indexFlags struct {
	recursive   bool
	types       []string
	tags        []string
	maxFiles    int
	concurrency int
	chunkSize   int
	noEmbed     bool
	noConcepts  bool
	summarise   bool
}

func (f *indexFlags) register(fs *pflag.FlagSet) {
	fs.BoolVarP(&f.recursive, "recursive", "r", true, "descend into subdirectories")
	fs.StringSliceVarP(&f.types, "types", "t", nil, "only index these types (pdf,excel,csv,word,text,markdown)")
	fs.StringSliceVar(&f.tags, "tags", nil, "tags to attach to every indexed document")
	fs.IntVar(&f.maxFiles, "max-files", 0, "maximum files per directory run")
	fs.IntVar(&f.concurrency, "concurrency", 0, "files processed in parallel")
	fs.IntVar(&f.chunkSize, "chunk-size", 0, "target chunk size in characters")
	fs.BoolVar(&f.noEmbed, "no-embed", false, "skip embedding generation")
	fs.BoolVar(&f.noConcepts, "no-concepts", false, "skip concept extraction")
	fs.BoolVar(&f.summarise, "summarise", false, "generate summaries and key points")
}

// apply overlays the flags the user set onto opts.
func (f *indexFlags) apply(fs *pflag.FlagSet, opts domain.IndexOptions) (domain.IndexOptions, error) {
	if fs.Changed("recursive") {
		opts.Recursive = f.recursive
	}
	if len(f.types) > 0 {
		types, err := domain.ParseDocumentTypes(f.types)
		if err != nil {
			return opts, err
		}
		opts.Types = types
	}
	if len(f.tags) > 0 {
		opts.Tags = domain.NormaliseTags(f.tags)
	}
	if f.maxFiles > 0 {
		opts.MaxFiles = f.maxFiles
	}
	if f.concurrency > 0 {
		opts.MaxConcurrentProcessing = f.concurrency
	}
	if f.chunkSize > 0 {
		opts.ChunkSize = f.chunkSize
	}
	if f.noEmbed {
		opts.GenerateEmbeddings = false
	}
	if f.noConcepts {
		opts.ExtractConcepts = false
	}
	if f.summarise {
		opts.GenerateSummary = true
	}
	return opts, nil
}

var (
	indexOpts     indexFlags
	indexProgress bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a file or directory",
	Long: `Index a single file or every supported file under a directory.

Files are extracted, chunked and stored for full-text search. When an
embedding provider is configured chunks are also embedded, and when an
LLM is configured concepts are extracted into the knowledge graph.

Reindexing a file replaces its previous content.

Examples:
  kindex index ~/Documents/reports
  kindex index notes.md --tags work,planning
  kindex index ~/papers --types pdf --no-concepts --progress`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexOpts.register(indexCmd.Flags())
	indexCmd.Flags().BoolVar(&indexProgress, "progress", false, "show an interactive progress bar")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot index %s: %w", path, err)
	}

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		opts, err := indexOpts.apply(cmd.Flags(), e.IndexOptions())
		if err != nil {
			return err
		}

		if !info.IsDir() {
			id, err := e.IndexDocument(ctx, path, opts)
			if err != nil {
				return fmt.Errorf("failed to index %s: %w", path, err)
			}
			cmd.Printf("Indexed %s\n  ID: %s\n", path, id)
			return nil
		}

		var final domain.IndexingProgress
		if indexProgress {
			final, err = tui.RunIndexing(ctx, e, path, opts)
		} else {
			opts.OnProgress = progressPrinter(cmd)
			final, err = e.IndexDirectory(ctx, path, opts)
		}
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}
		return reportRun(cmd, final)
	})
}

// progressPrinter prints a line each time a file finishes.
func progressPrinter(cmd *cobra.Command) domain.ProgressFunc {
	last := -1
	return func(p domain.IndexingProgress) {
		if p.Processed == last || p.Processed == 0 {
			return
		}
		last = p.Processed
		cmd.Printf("  [%d/%d] %s\n", p.Processed, p.Total, p.CurrentFile)
	}
}

func reportRun(cmd *cobra.Command, p domain.IndexingProgress) error {
	cmd.Println()
	cmd.Printf("Indexed %d of %d files", p.Succeeded(), p.Total)
	if p.Failed > 0 {
		cmd.Printf(" (%d failed)", p.Failed)
	}
	if p.StartTime != nil && p.EndTime != nil {
		cmd.Printf(" in %s", p.EndTime.Sub(*p.StartTime).Round(time.Millisecond))
	}
	cmd.Println()

	if p.Status == domain.StatusError {
		if p.Error == "" {
			return errors.New("indexing stopped")
		}
		return fmt.Errorf("indexing stopped: %s", p.Error)
	}
	return nil
}
