package documents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/core/domain"
)

type mockLibrary struct {
	docs       []domain.Document
	listErr    error
	deleteErr  error
	deletedID  string
	lastFilter domain.DocumentFilter
}

func (m *mockLibrary) ListDocuments(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	m.lastFilter = filter
	return m.docs, m.listErr
}

func (m *mockLibrary) DeleteDocument(_ context.Context, id string) (bool, error) {
	m.deletedID = id
	return m.deleteErr == nil, m.deleteErr
}

func testDocuments(n int) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{
			ID:    fmt.Sprintf("doc-%d", i),
			Title: fmt.Sprintf("Doc %d", i),
			Path:  fmt.Sprintf("/docs/doc-%d.md", i),
			Type:  domain.DocumentTypeMarkdown,
		}
	}
	return docs
}

func loadedView(t *testing.T, lib *mockLibrary) *View {
	t.Helper()
	v := NewView(nil, lib)
	v.SetDimensions(120, 30)
	cmd := v.Init()
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	return v
}

func press(v *View, keys ...string) (*View, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		v, cmd = v.Update(msg)
	}
	return v, cmd
}

func TestView_LoadsDocuments(t *testing.T) {
	lib := &mockLibrary{docs: testDocuments(3)}
	v := loadedView(t, lib)

	assert.Equal(t, listLimit, lib.lastFilter.Limit)
	assert.Len(t, v.Documents(), 3)

	view := v.View()
	assert.Contains(t, view, "Documents (3)")
	assert.Contains(t, view, "Doc 1")
	assert.Contains(t, view, "/docs/doc-2.md")
	assert.Contains(t, view, "markdown")
}

func TestView_LoadingAndEmpty(t *testing.T) {
	v := NewView(nil, &mockLibrary{})
	cmd := v.Init()
	assert.Contains(t, v.View(), "Loading documents...")

	v, _ = v.Update(cmd())
	assert.Contains(t, v.View(), "Nothing indexed yet")
}

func TestView_LoadError(t *testing.T) {
	v := loadedView(t, &mockLibrary{listErr: errors.New("db closed")})

	require.Error(t, v.Err())
	assert.Contains(t, v.View(), "Error: db closed")
}

func TestView_NilLibrary(t *testing.T) {
	v := NewView(nil, nil)
	msg := v.Init()().(messages.DocumentsLoaded)
	assert.ErrorIs(t, msg.Err, ErrNoLibrary)
}

func TestView_Navigation(t *testing.T) {
	v := loadedView(t, &mockLibrary{docs: testDocuments(3)})

	v, _ = press(v, "j", "j", "j")
	assert.Equal(t, "doc-2", v.SelectedDocument().ID)

	v, _ = press(v, "k")
	assert.Equal(t, "doc-1", v.SelectedDocument().ID)
}

func TestView_ScrollKeepsSelectionVisible(t *testing.T) {
	v := NewView(nil, &mockLibrary{docs: testDocuments(20)})
	v.SetDimensions(120, 12)
	v, _ = v.Update(v.Init()())

	for range 10 {
		v, _ = press(v, "j")
	}
	assert.Equal(t, 7, v.scrollOffset)
	assert.Contains(t, v.View(), "Doc 10")
	assert.Contains(t, v.View(), "[8-11 of 20]")
}

func TestView_ActionMenu(t *testing.T) {
	tests := []struct {
		name  string
		downs int
		want  tea.Msg
	}{
		{"content", 0, messages.DocumentSelected{DocumentID: "doc-0", Title: "Doc 0", From: messages.ViewDocuments}},
		{"details", 1, messages.DetailsRequested{DocumentID: "doc-0", From: messages.ViewDocuments}},
		{"open", 2, messages.OpenRequested{DocumentID: "doc-0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := loadedView(t, &mockLibrary{docs: testDocuments(2)})

			v, _ = press(v, "enter")
			assert.Contains(t, v.View(), "Read content")
			for range tt.downs {
				v, _ = press(v, "j")
			}

			_, cmd := press(v, "enter")
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func TestView_ActionMenuCancel(t *testing.T) {
	v := loadedView(t, &mockLibrary{docs: testDocuments(1)})

	v, _ = press(v, "enter", "esc")
	assert.False(t, v.showingMenu)

	v, cmd := press(v, "enter", "j", "j", "j", "j", "j", "enter")
	assert.Nil(t, cmd)
	assert.False(t, v.showingMenu)
}

func TestView_Delete(t *testing.T) {
	lib := &mockLibrary{docs: testDocuments(2)}
	v := loadedView(t, lib)

	v, cmd := press(v, "j", "enter", "j", "j", "j", "enter")
	require.NotNil(t, cmd)
	deleted := cmd().(messages.DocumentDeleted)
	assert.Equal(t, "doc-1", lib.deletedID)

	lib.docs = lib.docs[:1]
	v, cmd = v.Update(deleted)
	require.NotNil(t, cmd, "reloads after delete")
	v, _ = v.Update(cmd())

	assert.Len(t, v.Documents(), 1)
	assert.Equal(t, "doc-0", v.SelectedDocument().ID)
	assert.Contains(t, v.View(), "Removed doc-1")
}

func TestView_DeleteError(t *testing.T) {
	v := loadedView(t, &mockLibrary{docs: testDocuments(1)})

	v, _ = v.Update(messages.DocumentDeleted{DocumentID: "doc-0", Err: errors.New("locked")})
	assert.Contains(t, v.View(), "Error: locked")
}

func TestView_RefreshAndBack(t *testing.T) {
	v := loadedView(t, &mockLibrary{docs: testDocuments(1)})

	v, cmd := press(v, "r")
	require.NotNil(t, cmd)
	_, ok := cmd().(messages.DocumentsLoaded)
	assert.True(t, ok)

	_, cmd = press(v, "esc")
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "Remove from index", ActionDelete.String())
	assert.Equal(t, "unknown", Action(99).String())
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abcdefg...", clipRight("abcdefghijkl", 10))
	assert.Equal(t, ".../b/c.md", clipLeft("/root/a/b/c.md", 10))
	assert.Equal(t, "short", clipLeft("short", 10))
}
