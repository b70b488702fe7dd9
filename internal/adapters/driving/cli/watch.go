package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kindex/internal/engine"
)

var (
	watchOpts indexFlags
	watchScan bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Keep directories indexed as files change",
	Long: `Watch one or more directories and reindex files when they are created
or modified. Deleted and renamed files are removed from the index.

The command runs until interrupted. Use --scan to index existing files
before watching starts.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchOpts.register(watchCmd.Flags())
	watchCmd.Flags().BoolVar(&watchScan, "scan", false, "index existing files before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot watch %s: %w", path, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("cannot watch %s: not a directory", path)
		}
	}

	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		opts, err := watchOpts.apply(cmd.Flags(), e.IndexOptions())
		if err != nil {
			return err
		}

		for _, path := range args {
			if watchScan {
				scan := opts
				scan.OnProgress = progressPrinter(cmd)
				final, err := e.IndexDirectory(ctx, path, scan)
				if err != nil {
					return fmt.Errorf("failed to index %s: %w", path, err)
				}
				if err := reportRun(cmd, final); err != nil {
					return err
				}
			}
			if err := e.WatchDirectory(ctx, path, opts); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			cmd.Printf("Watching %s\n", path)
		}

		cmd.Println("Press Ctrl+C to stop.")
		<-ctx.Done()
		e.StopAllWatching()
		cmd.Println("Stopped watching.")
		return nil
	})
}
