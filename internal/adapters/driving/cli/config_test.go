package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/config"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// fakeValidator records validated providers and fails on demand.
type fakeValidator struct {
	embedErr error
	llmErr   error

	embedding []domain.EmbeddingSettings
	llm       []domain.LLMSettings
}

func (f *fakeValidator) ValidateEmbedding(c *domain.EmbeddingSettings) error {
	f.embedding = append(f.embedding, *c)
	return f.embedErr
}

func (f *fakeValidator) ValidateLLM(c *domain.LLMSettings) error {
	f.llm = append(f.llm, *c)
	return f.llmErr
}

func useValidator(t *testing.T, v *fakeValidator) {
	t.Helper()
	original := newValidator
	newValidator = func() driven.AIConfigValidator { return v }
	t.Cleanup(func() { newValidator = original })
}

func TestConfigCmd_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range configCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"show", "path", "get", "set", "unset", "check", "wizard"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestConfigPathCmd(t *testing.T) {
	dir := setupConfigDir(t)

	out, err := execute(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), strings.TrimSpace(out))
}

func TestConfigSetAndGet(t *testing.T) {
	dir := setupConfigDir(t)

	out, err := execute(t, "config", "set", config.KeyChunkSize, "800")
	require.NoError(t, err)
	assert.Contains(t, out, "Set indexing.chunk_size")

	out, err = execute(t, "config", "get", config.KeyChunkSize)
	require.NoError(t, err)
	assert.Equal(t, "800", strings.TrimSpace(out))

	raw, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[indexing]")
	assert.Contains(t, string(raw), "chunk_size = 800")
}

func TestConfigSetCmd_RejectsBadValues(t *testing.T) {
	setupConfigDir(t)

	_, err := execute(t, "config", "set", config.KeyChunkSize, "large")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "config", "set", config.KeyEmbedProvider, "anthropic")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigSetCmd_InvalidValueNotPersisted(t *testing.T) {
	setupConfigDir(t)

	_, err := execute(t, "config", "set", config.KeyChunkSize, "0")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "config", "get", config.KeyChunkSize)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigUnsetCmd(t *testing.T) {
	setupConfigDir(t)
	_, err := execute(t, "config", "set", config.KeyMaxFiles, "25")
	require.NoError(t, err)

	out, err := execute(t, "config", "unset", config.KeyMaxFiles)
	require.NoError(t, err)
	assert.Contains(t, out, "Unset indexing.max_files")

	_, err = execute(t, "config", "get", config.KeyMaxFiles)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = execute(t, "config", "unset", config.KeyMaxFiles)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigGetCmd_Missing(t *testing.T) {
	setupConfigDir(t)

	_, err := execute(t, "config", "get", "llm.model")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigShowCmd_MasksKeys(t *testing.T) {
	setupConfigDir(t)
	_, err := execute(t, "config", "set", config.KeyLLMProvider, "openai")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", config.KeyLLMAPIKey, "sk-abcdefghijklmnop")
	require.NoError(t, err)

	out, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Provider: (none)")
	assert.Contains(t, out, "OpenAI (cloud)")
	assert.Contains(t, out, "sk-a...mnop")
	assert.NotContains(t, out, "sk-abcdefghijklmnop")
	assert.Contains(t, out, "Local (in-process cosine scan)")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...wxyz", maskAPIKey("abcdefghuvwxyz"))
}

func TestConfigCheckCmd_NothingConfigured(t *testing.T) {
	setupConfigDir(t)
	v := &fakeValidator{}
	useValidator(t, v)

	out, err := execute(t, "config", "check")

	require.NoError(t, err)
	assert.Contains(t, out, "lexical search only")
	assert.Empty(t, v.embedding)
	assert.Empty(t, v.llm)
}

func TestConfigCheckCmd_ReportsFailures(t *testing.T) {
	setupConfigDir(t)
	_, err := execute(t, "config", "set", config.KeyEmbedProvider, "ollama")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", config.KeyLLMProvider, "anthropic")
	require.NoError(t, err)

	v := &fakeValidator{embedErr: errors.New("connection refused")}
	useValidator(t, v)

	out, err := execute(t, "config", "check")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "API key missing")
	assert.Contains(t, out, "FAILED: connection refused")
	require.Len(t, v.embedding, 1)
	assert.Equal(t, domain.AIProviderOllama, v.embedding[0].Provider)
}

func TestConfigWizardCmd(t *testing.T) {
	setupConfigDir(t)
	v := &fakeValidator{}
	useValidator(t, v)

	// Embedding: OpenAI with default model and a key. LLM: none.
	stdin := "2\n\nsk-test-key-123456\n4\n"
	out, err := executeContext(t, context.Background(), stdin, "config", "wizard")

	require.NoError(t, err, out)
	assert.Contains(t, out, "Configuration Complete!")
	require.Len(t, v.embedding, 1)
	assert.Equal(t, "sk-test-key-123456", v.embedding[0].APIKey)
	assert.Empty(t, v.llm)

	out, err = execute(t, "config", "get", config.KeyEmbedProvider)
	require.NoError(t, err)
	assert.Equal(t, "openai", strings.TrimSpace(out))

	out, err = execute(t, "config", "get", config.KeyEmbedModel)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultEmbeddingModels()[domain.AIProviderOpenAI], strings.TrimSpace(out))
}

func TestConfigWizardCmd_ValidationFails(t *testing.T) {
	setupConfigDir(t)
	useValidator(t, &fakeValidator{embedErr: errors.New("bad key")})

	_, err := executeContext(t, context.Background(), "2\n\nsk-wrong\n", "config", "wizard")
	require.Error(t, err)

	_, err = execute(t, "config", "get", config.KeyEmbedProvider)
	assert.ErrorIs(t, err, domain.ErrNotFound, "nothing is saved when validation fails")
}

func TestParseChoice(t *testing.T) {
	assert.Equal(t, 1, parseChoice("", 3, 1))
	assert.Equal(t, 2, parseChoice("2", 3, 1))
	assert.Equal(t, 1, parseChoice("9", 3, 1))
	assert.Equal(t, 1, parseChoice("x", 3, 1))
}
