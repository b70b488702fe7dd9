package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
)

type mockLoader struct {
	content string
	err     error
	lastID  string
}

func (m *mockLoader) GetDocumentContent(_ context.Context, id string) (string, error) {
	m.lastID = id
	return m.content, m.err
}

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("Line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func loadedView(t *testing.T, content string, height int) *View {
	t.Helper()
	loader := &mockLoader{content: content}
	v := NewView(nil, loader)
	v.SetDimensions(80, height)

	cmd := v.SetDocument("doc-1", "Notes", messages.ViewSearch)
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	return v
}

func TestView_SetDocumentLoadsContent(t *testing.T) {
	loader := &mockLoader{content: "hello\nworld"}
	v := NewView(nil, loader)

	cmd := v.SetDocument("doc-1", "Notes", messages.ViewSearch)
	assert.Contains(t, v.View(), "Loading content...")

	msg, ok := cmd().(messages.DocumentContentLoaded)
	require.True(t, ok)
	assert.Equal(t, "doc-1", loader.lastID)

	v, _ = v.Update(msg)
	assert.Equal(t, "hello\nworld", v.Content())
	view := v.View()
	assert.Contains(t, view, "Notes")
	assert.Contains(t, view, "world")
}

func TestView_StaleContentIgnored(t *testing.T) {
	v := NewView(nil, &mockLoader{})
	v.SetDocument("doc-2", "", messages.ViewDocuments)

	v, _ = v.Update(messages.DocumentContentLoaded{DocumentID: "doc-1", Content: "old"})
	assert.Empty(t, v.Content())
}

func TestView_LoadError(t *testing.T) {
	v := NewView(nil, &mockLoader{err: errors.New("gone")})
	cmd := v.SetDocument("doc-1", "", messages.ViewDocuments)

	v, _ = v.Update(cmd())
	require.Error(t, v.Err())
	assert.Contains(t, v.View(), "Error: gone")
}

func TestView_NilLoader(t *testing.T) {
	v := NewView(nil, nil)
	cmd := v.SetDocument("doc-1", "", messages.ViewDocuments)

	msg := cmd().(messages.DocumentContentLoaded)
	assert.ErrorIs(t, msg.Err, ErrNoLoader)
}

func TestView_EmptyContent(t *testing.T) {
	v := loadedView(t, "", 24)
	assert.Contains(t, v.View(), "(No content)")
}

func TestView_Scrolling(t *testing.T) {
	v := loadedView(t, numberedLines(30), 10)
	require.Equal(t, 4, v.visibleLines())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 2, v.scrollOffset)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	assert.Equal(t, 1, v.scrollOffset)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 5, v.scrollOffset)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	assert.Equal(t, 26, v.scrollOffset)
	assert.Contains(t, v.View(), "[100%] Line 27-30 of 30")

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 26, v.scrollOffset, "stops at the end")

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 22, v.scrollOffset)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	assert.Equal(t, 0, v.scrollOffset)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, v.scrollOffset)
}

func TestView_WrapsLongLines(t *testing.T) {
	v := loadedView(t, strings.Repeat("é", 100), 24)

	require.Len(t, v.lines, 2)
	assert.Equal(t, 76, len([]rune(v.lines[0])))
	assert.Equal(t, 24, len([]rune(v.lines[1])))
}

func TestView_Keys(t *testing.T) {
	v := loadedView(t, "text", 24)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewSearch}, cmd())

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.DetailsRequested{DocumentID: "doc-1", From: messages.ViewSearch}, cmd())

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.OpenRequested{DocumentID: "doc-1"}, cmd())
}
