// Package embedding wraps provider embedding adapters with the input and
// output guarantees the indexer relies on.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// ErrEmptyInput is returned for blank text; the provider is not called.
var ErrEmptyInput = errors.New("empty embedding input")

// Service truncates input, L2-normalises output and reports every
// failure as a domain.EmbeddingError.
type Service struct {
	inner         driven.EmbeddingService
	maxInputChars int
	limiter       *rate.Limiter
}

// Option configures a Service.
type Option func(*Service)

// WithMaxInputChars sets the rune limit applied before each call.
func WithMaxInputChars(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxInputChars = n
		}
	}
}

// WithRateLimit throttles provider calls to rps requests per second.
func WithRateLimit(rps float64) Option {
	return func(s *Service) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New wraps inner.
func New(inner driven.EmbeddingService, opts ...Option) *Service {
	s := &Service{
		inner:         inner,
		maxInputChars: domain.DefaultEmbeddingMaxInputChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Embed returns the unit-length embedding of text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return nil, domain.NewEmbeddingError(ErrEmptyInput)
	}
	if err := s.wait(ctx); err != nil {
		return nil, domain.NewEmbeddingError(err)
	}

	vec, err := s.inner.Embed(ctx, Truncate(text, s.maxInputChars))
	if err != nil {
		return nil, domain.NewEmbeddingError(err)
	}
	if len(vec) == 0 {
		return nil, domain.NewEmbeddingError(fmt.Errorf("%s returned no vector", s.inner.ModelName()))
	}
	Normalize(vec)
	return vec, nil
}

// EmbedBatch embeds texts in one provider call. Blank entries fail the batch.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	inputs := make([]string, len(texts))
	for i, t := range texts {
		if isBlank(t) {
			return nil, domain.NewEmbeddingError(fmt.Errorf("text %d: %w", i, ErrEmptyInput))
		}
		inputs[i] = Truncate(t, s.maxInputChars)
	}
	if err := s.wait(ctx); err != nil {
		return nil, domain.NewEmbeddingError(err)
	}

	vecs, err := s.inner.EmbedBatch(ctx, inputs)
	if err != nil {
		return nil, domain.NewEmbeddingError(err)
	}
	if len(vecs) != len(texts) {
		return nil, domain.NewEmbeddingError(fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts)))
	}
	for _, v := range vecs {
		Normalize(v)
	}
	return vecs, nil
}

// Dimensions returns the embedding vector size.
func (s *Service) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *Service) ModelName() string {
	return s.inner.ModelName()
}

// Ping validates the provider is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases resources.
func (s *Service) Close() error {
	return s.inner.Close()
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// Truncate cuts text to at most maxChars runes.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}

// Normalize scales v to unit length in place. Zero vectors are left alone.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
		default:
			return false
		}
	}
	return true
}
