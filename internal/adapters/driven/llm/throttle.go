// Package llm holds provider-independent wrappers for driven.LLMService.
package llm

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

var _ driven.LLMService = (*Throttled)(nil)

// Throttled limits the request rate of an LLM service. Calls block until the
// limiter admits them or ctx ends.
type Throttled struct {
	inner   driven.LLMService
	limiter *rate.Limiter
}

// NewThrottled wraps inner. A non-positive rps disables limiting.
func NewThrottled(inner driven.LLMService, rps float64) *Throttled {
	t := &Throttled{inner: inner}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return t
}

// Generate waits for the limiter then delegates.
func (t *Throttled) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			return "", fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
	}
	return t.inner.Generate(ctx, prompt, opts)
}

// ModelName returns the wrapped model name.
func (t *Throttled) ModelName() string { return t.inner.ModelName() }

// Ping is not rate limited.
func (t *Throttled) Ping(ctx context.Context) error { return t.inner.Ping(ctx) }

// Close closes the wrapped service.
func (t *Throttled) Close() error { return t.inner.Close() }
