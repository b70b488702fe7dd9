package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

func TestConfigValidator_NilAndEmpty(t *testing.T) {
	v := NewConfigValidator()

	assert.NoError(t, v.ValidateEmbedding(nil))
	assert.NoError(t, v.ValidateLLM(nil))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{}))
}

func TestConfigValidator_PingsProvider(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer healthy.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	v := NewConfigValidator()
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: healthy.URL}))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: healthy.URL}))
	assert.Error(t, v.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL}))
}
