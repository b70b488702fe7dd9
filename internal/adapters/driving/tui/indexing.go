package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/views/progress"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

// indexingModel adapts the standalone progress view to tea.Model.
type indexingModel struct {
	view *progress.View
}

func (m indexingModel) Init() tea.Cmd { return m.view.Init() }

func (m indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m indexingModel) View() string { return m.view.View() }

// RunIndexing indexes root while rendering a live progress bar. Quitting
// the view cancels the run. Any OnProgress callback in opts still fires.
func RunIndexing(
	ctx context.Context,
	kb driving.KnowledgeBase,
	root string,
	opts domain.IndexOptions,
	programOpts ...tea.ProgramOption,
) (domain.IndexingProgress, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := progress.NewStandaloneView(nil, kb, root, cancel)
	p := tea.NewProgram(indexingModel{view: view}, programOpts...)

	next := opts.OnProgress
	opts.OnProgress = func(snapshot domain.IndexingProgress) {
		if next != nil {
			next(snapshot)
		}
		p.Send(messages.ProgressUpdated{Progress: snapshot})
	}

	type result struct {
		progress domain.IndexingProgress
		err      error
	}
	done := make(chan result, 1)
	go func() {
		snapshot, err := kb.IndexDirectory(ctx, root, opts)
		done <- result{progress: snapshot, err: err}
		p.Send(messages.IndexingFinished{Progress: snapshot, Err: err})
	}()

	_, runErr := p.Run()
	cancel()
	res := <-done

	if runErr != nil {
		return res.progress, fmt.Errorf("running progress view: %w", runErr)
	}
	return res.progress, res.err
}
