package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_TypedGetters(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("str", "hello"))
	require.NoError(t, s.Set("int", 42))
	require.NoError(t, s.Set("int64", int64(7)))
	require.NoError(t, s.Set("float", 1.5))
	require.NoError(t, s.Set("bool", true))
	require.NoError(t, s.Set("strs", []string{"a", "b"}))
	require.NoError(t, s.Set("anys", []any{"x", 3, "y"}))

	assert.Equal(t, "hello", s.GetString("str"))
	assert.Equal(t, 42, s.GetInt("int"))
	assert.Equal(t, 7, s.GetInt("int64"))
	assert.Equal(t, 1, s.GetInt("float"))
	assert.InDelta(t, 1.5, s.GetFloat("float"), 1e-9)
	assert.InDelta(t, 42.0, s.GetFloat("int"), 1e-9)
	assert.True(t, s.GetBool("bool"))
	assert.Equal(t, []string{"a", "b"}, s.GetStringSlice("strs"))
	assert.Equal(t, []string{"x", "y"}, s.GetStringSlice("anys"))
}

func TestConfigStore_WrongTypesAndMissing(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("str", "hello"))

	assert.Equal(t, 0, s.GetInt("str"))
	assert.Zero(t, s.GetFloat("str"))
	assert.False(t, s.GetBool("str"))
	assert.Nil(t, s.GetStringSlice("str"))
	assert.Empty(t, s.GetString("missing"))

	_, ok := s.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, ":memory:", s.Path())
	assert.NoError(t, s.Save())
	assert.NoError(t, s.Load())
}

func TestOverlay_ReadsThroughAndShadows(t *testing.T) {
	base := NewConfigStore()
	require.NoError(t, base.Set("indexing.chunk_size", 1000))
	require.NoError(t, base.Set("llm.provider", "openai"))

	o := NewOverlay(base)
	require.NoError(t, o.Set("indexing.chunk_size", 500))

	assert.Equal(t, 500, o.GetInt("indexing.chunk_size"))
	assert.Equal(t, "openai", o.GetString("llm.provider"))
	assert.Equal(t, 1000, base.GetInt("indexing.chunk_size"), "base is untouched")

	assert.Equal(t, map[string]any{"indexing.chunk_size": 500}, o.Changes())
}
