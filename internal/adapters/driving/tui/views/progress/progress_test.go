package progress

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/core/domain"
)

type mockController struct {
	progress domain.IndexingProgress
	paused   int
	resumed  int
}

func (m *mockController) GetIndexingProgress() domain.IndexingProgress { return m.progress }

func (m *mockController) PauseIndexing() bool {
	m.paused++
	m.progress.Status = domain.StatusPaused
	return true
}

func (m *mockController) ResumeIndexing() bool {
	m.resumed++
	m.progress.Status = domain.StatusIndexing
	return true
}

func keyRune(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func TestView_InitPollsController(t *testing.T) {
	ctrl := &mockController{progress: domain.IndexingProgress{
		Status: domain.StatusIndexing, Total: 4, Processed: 1, CurrentFile: "/docs/a.md",
	}}
	v := NewView(nil, ctrl)

	require.NotNil(t, v.Init())
	assert.Equal(t, 1, v.Snapshot().Processed)

	ctrl.progress.Processed = 3
	v, cmd := v.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd, "keeps polling")
	assert.Equal(t, 3, v.Snapshot().Processed)

	view := v.View()
	assert.Contains(t, view, "indexing")
	assert.Contains(t, view, "3/4 files")
	assert.Contains(t, view, "a.md")
	assert.Contains(t, view, "75%")
}

func TestView_PauseAndResume(t *testing.T) {
	ctrl := &mockController{progress: domain.IndexingProgress{Status: domain.StatusIndexing, Total: 2}}
	v := NewView(nil, ctrl)
	v.Init()

	v, _ = v.Update(keyRune("p"))
	assert.Equal(t, 1, ctrl.paused)
	assert.Equal(t, domain.StatusPaused, v.Snapshot().Status)
	assert.Contains(t, v.View(), "paused")

	v, _ = v.Update(keyRune("p"))
	assert.Equal(t, 1, ctrl.resumed)
	assert.Equal(t, domain.StatusIndexing, v.Snapshot().Status)
}

func TestView_PauseWhenIdle(t *testing.T) {
	ctrl := &mockController{}
	v := NewView(nil, ctrl)
	v.Init()

	v, _ = v.Update(keyRune("p"))
	assert.Zero(t, ctrl.paused)
	assert.Contains(t, v.View(), "Nothing to pause")
}

func TestView_EscReturnsToMenu(t *testing.T) {
	v := NewView(nil, &mockController{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())

	_, cmd = v.Update(keyRune("q"))
	assert.Nil(t, cmd, "embedded view leaves quitting to the app")
}

func TestStandaloneView_ReceivesUpdates(t *testing.T) {
	v := NewStandaloneView(nil, &mockController{}, "/docs", nil)
	require.NotNil(t, v.Init())

	v, _ = v.Update(tickMsg(time.Now()))
	assert.Equal(t, domain.IndexingProgress{}, v.Snapshot(), "standalone views do not poll")

	v, _ = v.Update(messages.ProgressUpdated{Progress: domain.IndexingProgress{
		Status: domain.StatusIndexing, Total: 10, Processed: 5, Failed: 2,
	}})
	view := v.View()
	assert.Contains(t, view, "Indexing /docs")
	assert.Contains(t, view, "5/10 files")
	assert.Contains(t, view, "2 failed")
	assert.Contains(t, view, "[q] cancel")
}

func TestStandaloneView_FinishQuits(t *testing.T) {
	v := NewStandaloneView(nil, &mockController{}, "/docs", nil)
	start := time.Now().Add(-3 * time.Second)
	end := time.Now()

	v, cmd := v.Update(messages.IndexingFinished{Progress: domain.IndexingProgress{
		Status: domain.StatusCompleted, Total: 2, Processed: 2, StartTime: &start, EndTime: &end,
	}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, v.Done())
	assert.Contains(t, v.View(), "completed")
	assert.Contains(t, v.View(), "100%")
	assert.Contains(t, v.View(), "3s")
}

func TestStandaloneView_CancelCallsBack(t *testing.T) {
	cancelled := false
	v := NewStandaloneView(nil, &mockController{}, "/docs", func() { cancelled = true })

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, cancelled)
}

func TestView_FinishedWithError(t *testing.T) {
	v := NewView(nil, &mockController{})

	v, cmd := v.Update(messages.IndexingFinished{
		Progress: domain.IndexingProgress{Status: domain.StatusError, Error: "context canceled"},
		Err:      errors.New("walk failed"),
	})
	assert.Nil(t, cmd)
	view := v.View()
	assert.Contains(t, view, "context canceled")
	assert.Contains(t, view, "Error: walk failed")
	assert.EqualError(t, v.Err(), "walk failed")
}

func TestView_SetDimensions(t *testing.T) {
	v := NewView(nil, nil)

	v.SetDimensions(40, 10)
	assert.Equal(t, 36, v.bar.Width)

	v.SetDimensions(300, 10)
	assert.Equal(t, 80, v.bar.Width)
}
