// Package ollama completes prompts with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/kindex/internal/adapters/driven/ollamahttp"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Defaults.
const (
	DefaultBaseURL    = ollamahttp.DefaultBaseURL
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the service. Zero fields take the defaults above.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService calls POST /api/generate without streaming.
type LLMService struct {
	client *ollamahttp.Client
	model  string
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options *generateParams `json:"options,omitempty"`
}

type generateParams struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// NewLLMService creates the service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		client: ollamahttp.New(cfg.BaseURL, cfg.Timeout),
		model:  cfg.Model,
	}
}

// Generate returns the full completion. opts.JSON selects Ollama's json
// output format, which concept extraction relies on for local models.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{Model: s.model, Prompt: prompt}
	if opts.JSON {
		req.Format = "json"
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 || len(opts.StopWords) > 0 {
		req.Options = &generateParams{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		}
	}

	var resp generateResponse
	if err := s.client.Post(ctx, "/api/generate", req, &resp); err != nil {
		if ollamahttp.IsModelMissing(err) {
			return "", fmt.Errorf("%w (run: ollama pull %s)", err, s.model)
		}
		return "", err
	}
	return resp.Response, nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the server is up.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
