package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/core/domain"
)

// fakeProvider records inputs and returns fixed vectors.
type fakeProvider struct {
	inputs []string
	vec    []float32
	err    error
}

func (f *fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	f.inputs = append(f.inputs, text)
	if f.err != nil {
		return nil, f.err
	}
	return append([]float32(nil), f.vec...), nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeProvider) Dimensions() int              { return len(f.vec) }
func (f *fakeProvider) ModelName() string            { return "fake" }
func (f *fakeProvider) Ping(_ context.Context) error { return nil }
func (f *fakeProvider) Close() error                 { return nil }

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestService_Embed_NormalizesAndTruncates(t *testing.T) {
	provider := &fakeProvider{vec: []float32{3, 4}}
	svc := New(provider, WithMaxInputChars(5))

	vec, err := svc.Embed(context.Background(), "héllo wörld")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm(vec), 1e-6)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.Equal(t, []string{"héllo"}, provider.inputs)
	assert.Equal(t, 2, svc.Dimensions())
	assert.Equal(t, "fake", svc.ModelName())
}

func TestService_Embed_EmptyInput(t *testing.T) {
	provider := &fakeProvider{vec: []float32{1}}
	svc := New(provider)

	_, err := svc.Embed(context.Background(), " \n\t ")
	require.Error(t, err)

	var embErr *domain.EmbeddingError
	assert.True(t, errors.As(err, &embErr))
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.ErrorIs(t, err, domain.ErrKnowledgeBase)
	assert.Empty(t, provider.inputs, "provider not called")
}

func TestService_Embed_ProviderFailure(t *testing.T) {
	cause := errors.New("connection refused")
	svc := New(&fakeProvider{err: cause})

	_, err := svc.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var embErr *domain.EmbeddingError
	assert.True(t, errors.As(err, &embErr))
}

func TestService_EmbedBatch(t *testing.T) {
	provider := &fakeProvider{vec: []float32{0, 2}}
	svc := New(provider, WithRateLimit(1000))

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0, 1}, vecs[1])

	_, err = svc.EmbedBatch(context.Background(), []string{"a", ""})
	assert.ErrorIs(t, err, ErrEmptyInput)

	vecs, err = svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	Normalize(v)
	assert.Equal(t, []float32{0, 0, 0}, v)
}
