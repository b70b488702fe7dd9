package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptSummarise)
	require.NoError(t, err)

	for _, f := range []string{"summarise.txt", "key_points.txt", "concept_extraction.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_Defaults(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name     string
		contains []string
	}{
		{driven.PromptSummarise, []string{"%d", "%s"}},
		{driven.PromptKeyPoints, []string{"%d", "%s", "one point per line"}},
		{driven.PromptConceptExtraction, []string{"%s", "JSON array", `"person"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := store.Load(tt.name)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, prompt, s)
			}
		})
	}
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Concepts please: %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "concept_extraction.txt"), []byte(custom+"\n\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptConceptExtraction)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptKeyPoints)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "key_points.txt"), []byte("   "), 0600))
	store.Reload()

	prompt, err := store.Load(driven.PromptKeyPoints)
	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptKeyPoints], prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")
	assert.Error(t, err)
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptSummarise)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "summarise.txt"), []byte("edited %d %s"), 0600))

	cached, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.NotEqual(t, "edited %d %s", cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.Equal(t, "edited %d %s", fresh)
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summarise.txt")
	require.NoError(t, os.WriteFile(path, []byte("mine %d %s"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptKeyPoints)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mine %d %s", string(data))
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptConceptExtraction)
			assert.NoError(t, err)
			assert.NotEmpty(t, prompt)
		}()
	}
	wg.Wait()
}
