package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_RequiresPath(t *testing.T) {
	_, err := execute(t, "watch")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestWatchCmd_RejectsFiles(t *testing.T) {
	setupConfigDir(t)
	dir := writeCorpus(t)

	_, err := execute(t, "watch", filepath.Join(dir, "notes.txt"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestWatchCmd_RunsUntilCancelled(t *testing.T) {
	setupConfigDir(t)
	dir := writeCorpus(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := executeContext(t, ctx, "", "watch", "--scan", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 of 3 files")
	assert.Contains(t, out, "Watching "+dir)
	assert.Contains(t, out, "Stopped watching.")
}
