// Package ai builds the embedding, completion and vector index adapters
// selected by configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/kindex/internal/adapters/driven/embedding"
	ollamaembed "github.com/custodia-labs/kindex/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/kindex/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/kindex/internal/adapters/driven/llm"
	anthropicllm "github.com/custodia-labs/kindex/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/kindex/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/kindex/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/kindex/internal/adapters/driven/vector/local"
	"github.com/custodia-labs/kindex/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if a configured service was dropped.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Initialise creates every configured AI service. A service that cannot be
// created or reached is dropped with a warning; the engine then degrades
// (lexical search, no summaries or concepts). docs backs the local vector
// index.
func Initialise(ctx context.Context, settings domain.AppSettings, docs driven.DocumentStore) *InitResult {
	result := &InitResult{}

	embedder, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		result.warn(err)
	}
	result.EmbeddingService = embedder

	completer, err := CreateAndValidateLLMService(ctx, &settings.LLM)
	if err != nil {
		result.warn(err)
	}
	result.LLMService = completer

	if embedder != nil {
		index, err := CreateVectorIndex(ctx, settings.Vector, embedder.Dimensions(), docs)
		if err != nil {
			result.warn(err)
			index = local.New(docs)
		}
		result.VectorIndex = index
	}

	return result
}

func (r *InitResult) warn(err error) {
	r.Warnings = append(r.Warnings, err.Error())
	r.FellBack = true
	logger.Warn("%v", err)
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns nil without error when no provider is configured.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Check the [embedding] section of config.toml",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil without error when no provider is configured.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Check the [llm] section of config.toml",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig creates a service from settings and pings it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates a service from settings and pings it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the provider adapter for settings, wrapped
// with truncation, normalisation and rate limiting.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}
	if !settings.Provider.SupportsEmbeddings() {
		return nil, fmt.Errorf("%s does not support embeddings, use ollama or openai", settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%s requires an API key", settings.Provider)
	}

	var (
		inner driven.EmbeddingService
		err   error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		inner = createOllamaEmbedding(settings)
	case domain.AIProviderOpenAI:
		inner, err = createOpenAIEmbedding(settings)
	}
	if err != nil {
		return nil, err
	}

	return embedding.New(inner,
		embedding.WithMaxInputChars(settings.MaxInputChars),
		embedding.WithRateLimit(settings.RequestsPerSecond),
	), nil
}

// CreateLLMService creates the provider adapter for settings, throttled
// when a request rate is configured.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}

	var (
		inner driven.LLMService
		err   error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		inner = createOllamaLLM(settings)
	case domain.AIProviderOpenAI:
		inner, err = createOpenAILLM(settings)
	case domain.AIProviderAnthropic:
		inner, err = createAnthropicLLM(settings)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if settings.RequestsPerSecond > 0 {
		return llm.NewThrottled(inner, settings.RequestsPerSecond), nil
	}
	return inner, nil
}

// CreateVectorIndex creates the configured vector index. The Qdrant
// collection is created on first use with the given dimensions.
func CreateVectorIndex(
	ctx context.Context,
	settings domain.VectorSettings,
	dimensions int,
	docs driven.DocumentStore,
) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendLocal, "":
		return local.New(docs), nil

	case domain.VectorBackendQdrant:
		if settings.Dimensions > 0 {
			dimensions = settings.Dimensions
		}
		index := qdrant.New(qdrant.Config{
			BaseURL:    settings.URL,
			APIKey:     settings.APIKey,
			Collection: settings.Collection,
			Dimensions: dimensions,
		})

		initCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := index.Init(initCtx); err != nil {
			index.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		return index, nil

	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
