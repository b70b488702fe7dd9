package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/config"
	"github.com/custodia-labs/kindex/internal/core/domain"
)

// setupConfigDir points the CLI at an empty configuration directory and
// clears environment overrides.
func setupConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	for _, env := range []string{
		config.EnvDataDir, config.EnvOpenAIKey, config.EnvAnthropicKey, config.EnvOllamaHost,
		config.EnvQdrantURL, config.EnvNeo4jURI, config.EnvServerAddr,
	} {
		t.Setenv(env, "")
	}
	return dir
}

// resetFlags restores every flag to its default so state does not leak
// between executions of the shared rootCmd.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), "", args...)
}

func executeContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// writeCorpus creates a small document directory.
func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"notes.txt":          "Quarterly budget review for the platform team.",
		"travel.md":          "# Travel\n\nFlights and hotels for the offsite in Lisbon.",
		"archive/minutes.md": "# Minutes\n\nThe budget was approved after a long discussion.",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

// indexCorpus indexes a fresh corpus and returns its directory.
func indexCorpus(t *testing.T) string {
	t.Helper()
	dir := writeCorpus(t)
	out, err := execute(t, "index", dir)
	require.NoError(t, err, out)
	return dir
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "kindex", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{
		"config", "document", "graph", "index", "mcp", "search", "serve", "status", "tui", "version", "watch",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	v := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, v)
	assert.Equal(t, "v", v.Shorthand)

	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
}

func TestRootCmd_ConfigDirFlag(t *testing.T) {
	setupConfigDir(t)
	other := t.TempDir()

	out, err := execute(t, "--config-dir", other, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(other, "config.toml"), strings.TrimSpace(out))
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}

func TestVersionCmd_Executes(t *testing.T) {
	original := version
	version = "test-version-1.0.0"
	defer func() { version = original }()

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "kindex version test-version-1.0.0")
}

func TestVersionCmd_DisplaysDevByDefault(t *testing.T) {
	original := version
	version = "dev"
	defer func() { version = original }()

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "kindex version dev")
}

func TestStatusCmd(t *testing.T) {
	setupConfigDir(t)
	indexCorpus(t)

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:       3")
	assert.Contains(t, out, "Semantic search: disabled")

	out, err = execute(t, "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"documents": 3`)
	assert.Contains(t, out, `"semantic_search": false`)
}

func TestEnabled(t *testing.T) {
	assert.Equal(t, "disabled", enabled(false, "x"))
	assert.Equal(t, "enabled", enabled(true, ""))
	assert.Equal(t, "enabled (nomic)", enabled(true, "nomic"))
}

func TestServeAndMCPCmd_Flags(t *testing.T) {
	require.NotNil(t, serveCmd.Flags().Lookup("addr"))
	require.NotNil(t, serveCmd.Flags().Lookup("watch"))

	port := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "0", port.DefValue)

	require.NotNil(t, tuiCmd.Flags().Lookup("watch"))
}

func TestServeCmd_RescanNeedsWatch(t *testing.T) {
	setupConfigDir(t)

	_, err := execute(t, "serve", "--addr", "127.0.0.1:0", "--rescan", "1m")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "--watch")
}
