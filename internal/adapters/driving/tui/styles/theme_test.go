package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	assert.NotEmpty(t, string(theme.Primary))
	assert.NotEmpty(t, string(theme.Highlight))
	assert.NotEqual(t, theme.ProgressFrom, theme.ProgressTo)
	assert.NotEqual(t, theme.Success, theme.Error)
}

func TestNewStyles_NilThemeUsesDefault(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestNewStyles_UsesThemeColours(t *testing.T) {
	theme := DefaultTheme()
	theme.Primary = "#000001"
	s := NewStyles(theme)

	assert.Same(t, theme, s.Theme())
	assert.Equal(t, theme.Primary, s.Title.GetForeground())
	assert.Equal(t, theme.Highlight, s.Highlight.GetForeground())
	assert.True(t, s.Title.GetBold())
}

func TestStylesRender(t *testing.T) {
	s := DefaultStyles()

	assert.Contains(t, s.Normal.Render("plain"), "plain")
	assert.Contains(t, s.Badge.Render("lexical"), "lexical")
}
