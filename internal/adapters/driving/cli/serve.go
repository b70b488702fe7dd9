package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kindex/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/engine"
)

var (
	serveAddr    string
	serveWatches []string
	serveRescan  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the knowledge base over HTTP",
	Long: `Start the JSON HTTP API.

Routes:
  GET    /health
  GET    /api/search?q=...&semantic=true&types=pdf&tags=a,b&from=&to=
  GET    /api/documents
  GET    /api/documents/{id}
  DELETE /api/documents/{id}
  GET    /api/documents/{id}/content
  GET    /api/documents/{id}/similar
  GET    /api/graph
  POST   /api/index
  GET    /api/progress
  POST   /api/progress/pause
  POST   /api/progress/resume
  GET    /api/watches
  POST   /api/watches
  DELETE /api/watches

The listen address defaults to server.addr from config.toml.
With --rescan, watched directories are also fully re-indexed on that interval.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from configuration)")
	serveCmd.Flags().StringSliceVarP(&serveWatches, "watch", "w", nil, "directories to watch while serving")
	serveCmd.Flags().DurationVar(&serveRescan, "rescan", 0, "re-index watched directories on this interval (e.g. 30m)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		addr := serveAddr
		if addr == "" {
			addr = e.Config().Server.Addr
		}

		for _, dir := range serveWatches {
			if err := e.WatchDirectory(ctx, dir, e.IndexOptions()); err != nil {
				return err
			}
			cmd.Printf("Watching %s\n", dir)
		}

		if serveRescan > 0 {
			if len(serveWatches) == 0 {
				return fmt.Errorf("--rescan needs at least one --watch directory: %w", domain.ErrInvalidInput)
			}
			scheduler, err := e.NewScheduler(serveRescan, serveWatches)
			if err != nil {
				return err
			}
			go func() { _ = scheduler.Start(ctx) }()
			defer scheduler.Stop()
		}

		cmd.Printf("HTTP API listening on %s\n", addr)
		return httpapi.New(e).Run(ctx, addr)
	})
}
