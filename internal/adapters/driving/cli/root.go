// Package cli implements the kindex command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kindex/internal/config"
	"github.com/custodia-labs/kindex/internal/engine"
	"github.com/custodia-labs/kindex/internal/logger"
)

// version is set at build time through SetVersion.
var version = "dev"

var (
	verbose   bool
	configDir string
)

// openEngine builds the knowledge base for a command.
var openEngine = engine.Open

var rootCmd = &cobra.Command{
	Use:   "kindex",
	Short: "Index local documents and search them",
	Long: `kindex indexes PDF, Word, Excel, CSV, Markdown and text files into a
local knowledge base. Documents are chunked, optionally embedded and
enriched, and linked through a concept graph.

Search combines full-text ranking with semantic search when an embedding
provider is configured. Without one, every command still works lexically.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.SetOutput(cmd.ErrOrStderr())
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print diagnostic logs to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"configuration directory (default $KINDEX_CONFIG_DIR or ~/.kindex)")
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command with ctx. Command output goes to stdout
// and logs to stderr.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig resolves configuration from --config-dir.
func loadConfig() (*config.Config, *file.ConfigStore, error) {
	cfg, store, err := config.Load(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, store, nil
}

// withEngine opens the knowledge base, runs fn and closes it again.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *engine.Engine) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	e, err := openEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening knowledge base: %w", err)
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logger.Warn("closing knowledge base: %v", cerr)
		}
	}()

	for _, w := range e.Warnings() {
		logger.Warn("%s", w)
	}
	return fn(ctx, e)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
