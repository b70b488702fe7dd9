package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui"
	"github.com/custodia-labs/kindex/internal/engine"
)

var tuiWatches []string

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for kindex.

The TUI lets you search, browse and read indexed documents, inspect their
details and follow a running indexing job.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Search / Read
  Tab      - Toggle semantic search
  d        - Document details
  o        - Open in default application
  Esc      - Back
  ?        - Help
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringSliceVarP(&tuiWatches, "watch", "w", nil, "directories to watch while the UI is open")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		for _, dir := range tuiWatches {
			if err := e.WatchDirectory(ctx, dir, e.IndexOptions()); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}

		app, err := tui.NewApp(&tui.Ports{KnowledgeBase: e})
		if err != nil {
			return fmt.Errorf("failed to create TUI: %w", err)
		}

		if err := app.WithContext(ctx).Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}
