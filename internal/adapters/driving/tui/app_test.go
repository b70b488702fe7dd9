package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

func newTestApp(t *testing.T, kb *mockKnowledgeBase) *App {
	t.Helper()
	app, err := NewApp(&Ports{KnowledgeBase: kb})
	require.NoError(t, err)
	app.SetDimensions(120, 40)
	return app
}

// send delivers msg and returns the command the app produced.
func send(app *App, msg tea.Msg) tea.Cmd {
	_, cmd := app.Update(msg)
	return cmd
}

// sendAndRun delivers msg, then runs one round of the resulting command.
func sendAndRun(t *testing.T, app *App, msg tea.Msg) {
	t.Helper()
	cmd := send(app, msg)
	require.NotNil(t, cmd)
	send(app, cmd())
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(&Ports{KnowledgeBase: &mockKnowledgeBase{}})

	require.NoError(t, err)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingKnowledgeBase)
	assert.Nil(t, app)
}

func TestApp_InitShowsWatchedDirectories(t *testing.T) {
	app := newTestApp(t, &mockKnowledgeBase{watched: []string{"/a", "/b"}})

	assert.NotNil(t, app.Init())
	assert.Contains(t, app.View(), "watching 2 directories")
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{KnowledgeBase: &mockKnowledgeBase{}})
	require.NoError(t, err)

	send(app, tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "Search")
}

func TestApp_CtrlCQuits(t *testing.T) {
	app := newTestApp(t, &mockKnowledgeBase{})

	cmd := send(app, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, tea.Quit(), send(app, messages.Quit{})())
}

func TestApp_SearchToContentAndBack(t *testing.T) {
	kb := &mockKnowledgeBase{
		results: []domain.SearchResult{{DocumentID: "doc-1", Title: "Budget", Relevance: 0.8}},
		content: "Quarterly budget figures",
	}
	app := newTestApp(t, kb)

	send(app, messages.ViewChanged{View: messages.ViewSearch})
	assert.Equal(t, messages.ViewSearch, app.CurrentView())

	send(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("budget")})
	sendAndRun(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, app.View(), "Budget")

	sendAndRun(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, messages.ViewDocContent, app.CurrentView())

	cmd := send(app, messages.DocumentSelected{DocumentID: "doc-1", Title: "Budget", From: messages.ViewSearch})
	require.NotNil(t, cmd)
	send(app, cmd())
	assert.Contains(t, app.View(), "Quarterly budget figures")

	sendAndRun(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewSearch, app.CurrentView())
}

func TestApp_DetailsRequested(t *testing.T) {
	kb := &mockKnowledgeBase{details: &driving.DocumentDetails{
		ID: "doc-1", Title: "Budget", Path: "/docs/budget.md", Type: domain.DocumentTypeMarkdown,
	}}
	app := newTestApp(t, kb)

	sendAndRun(t, app, messages.DetailsRequested{DocumentID: "doc-1", From: messages.ViewDocuments})
	assert.Equal(t, messages.ViewDocDetails, app.CurrentView())
	assert.Contains(t, app.View(), "/docs/budget.md")

	sendAndRun(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
}

func TestApp_DetailsError(t *testing.T) {
	app := newTestApp(t, &mockKnowledgeBase{err: domain.ErrNotFound})
	send(app, messages.ViewChanged{View: messages.ViewSearch})

	sendAndRun(t, app, messages.DetailsRequested{DocumentID: "gone", From: messages.ViewSearch})

	assert.Equal(t, messages.ViewSearch, app.CurrentView())
	assert.ErrorIs(t, app.Err(), domain.ErrNotFound)
	assert.Contains(t, app.View(), "gone")
}

func TestApp_OpenRequested(t *testing.T) {
	kb := &mockKnowledgeBase{openErr: errors.New("no viewer")}
	app := newTestApp(t, kb)
	send(app, messages.ViewChanged{View: messages.ViewSearch})

	sendAndRun(t, app, messages.OpenRequested{DocumentID: "doc-1"})

	assert.Equal(t, []string{"doc-1"}, kb.opened)
	assert.Contains(t, app.View(), "no viewer")
}

func TestApp_DocumentsView(t *testing.T) {
	kb := &mockKnowledgeBase{documents: []domain.Document{
		{ID: "doc-1", Title: "Notes", Path: "/docs/notes.txt", Type: domain.DocumentTypeText},
	}}
	app := newTestApp(t, kb)

	sendAndRun(t, app, messages.ViewChanged{View: messages.ViewDocuments})

	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.Contains(t, app.View(), "Documents (1)")
	assert.Contains(t, app.View(), "Notes")
}

func TestApp_ProgressView(t *testing.T) {
	kb := &mockKnowledgeBase{}
	kb.setProgress(domain.IndexingProgress{Status: domain.StatusCompleted, Total: 3, Processed: 3})
	app := newTestApp(t, kb)

	cmd := send(app, messages.ViewChanged{View: messages.ViewProgress})
	assert.NotNil(t, cmd)
	assert.Contains(t, app.View(), "completed")
	assert.Contains(t, app.View(), "3/3 files")

	cmd = send(app, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	send(app, cmd())
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_HelpView(t *testing.T) {
	app := newTestApp(t, &mockKnowledgeBase{})

	send(app, messages.ViewChanged{View: messages.ViewHelp})
	view := app.View()
	assert.Contains(t, view, "Help")
	assert.Contains(t, view, "semantic/lexical")
	assert.Contains(t, view, "pause/resume")

	send(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t, &mockKnowledgeBase{})

	type key string
	ctx := context.WithValue(context.Background(), key("k"), "v")
	assert.Same(t, app, app.WithContext(ctx))
}

func headlessOptions(out *bytes.Buffer) []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithInput(nil),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	}
}

func TestRunIndexing_Completes(t *testing.T) {
	kb := &mockKnowledgeBase{
		steps: []domain.IndexingProgress{
			{Status: domain.StatusIndexing, Total: 2, Processed: 1},
		},
		final: domain.IndexingProgress{Status: domain.StatusCompleted, Total: 2, Processed: 2},
	}

	var seen []domain.IndexingProgress
	opts := domain.IndexOptions{OnProgress: func(p domain.IndexingProgress) { seen = append(seen, p) }}

	var out bytes.Buffer
	final, err := RunIndexing(context.Background(), kb, "/docs", opts, headlessOptions(&out)...)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, 2, final.Processed)
	assert.Len(t, seen, 1, "caller callback still fires")
}

func TestRunIndexing_ContextCancel(t *testing.T) {
	kb := &mockKnowledgeBase{blockRun: true}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	final, err := RunIndexing(ctx, kb, "/docs", domain.IndexOptions{}, headlessOptions(&out)...)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, final.Status)
}
