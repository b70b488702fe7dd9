// Package progress provides the directory indexing progress view for the TUI.
package progress

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kindex/internal/core/domain"
)

// pollInterval is how often the view refreshes when polling.
const pollInterval = 500 * time.Millisecond

// Controller exposes the indexer's progress and pause controls.
type Controller interface {
	GetIndexingProgress() domain.IndexingProgress
	PauseIndexing() bool
	ResumeIndexing() bool
}

type tickMsg time.Time

// View renders a progress bar for the current or last directory run.
type View struct {
	styles     *styles.Styles
	controller Controller
	bar        progress.Model
	spinner    spinner.Model

	snapshot domain.IndexingProgress
	root     string
	notice   string
	err      error
	width    int

	// standalone views own the program: q quits and a finished run exits.
	standalone bool
	done       bool
	onCancel   func()
}

// NewView creates a progress view embedded in the app. It polls the
// controller while visible.
func NewView(s *styles.Styles, controller Controller) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	theme := s.Theme()

	return &View{
		styles:     s,
		controller: controller,
		bar: progress.New(
			progress.WithGradient(theme.ProgressFrom, theme.ProgressTo),
			progress.WithWidth(60),
		),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Subtitle)),
		width:   80,
	}
}

// NewStandaloneView creates a view that owns its program. Snapshots
// arrive as ProgressUpdated messages, and IndexingFinished quits the
// program. onCancel is called when the user interrupts the run.
func NewStandaloneView(s *styles.Styles, controller Controller, root string, onCancel func()) *View {
	v := NewView(s, controller)
	v.standalone = true
	v.root = root
	v.onCancel = onCancel
	return v
}

// Init starts the spinner and, when embedded, polling.
func (v *View) Init() tea.Cmd {
	if v.standalone {
		return v.spinner.Tick
	}
	v.refresh()
	return tea.Batch(v.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (v *View) refresh() {
	if v.controller != nil {
		v.snapshot = v.controller.GetIndexingProgress()
	}
}

// Update handles messages for the progress view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case tickMsg:
		if v.standalone {
			return v, nil
		}
		v.refresh()
		return v, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.ProgressUpdated:
		v.snapshot = msg.Progress
		return v, nil

	case messages.IndexingFinished:
		v.snapshot = msg.Progress
		v.err = msg.Err
		v.done = true
		if v.standalone {
			return v, tea.Quit
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "p":
		v.togglePause()
	case "q", "ctrl+c":
		if v.standalone {
			if v.onCancel != nil {
				v.onCancel()
			}
			return v, tea.Quit
		}
	case "esc":
		if !v.standalone {
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
	}
	return v, nil
}

func (v *View) togglePause() {
	if v.controller == nil {
		return
	}
	switch v.snapshot.Status {
	case domain.StatusIndexing:
		if v.controller.PauseIndexing() {
			v.notice = "Pausing after the current batch..."
		}
	case domain.StatusPaused:
		if v.controller.ResumeIndexing() {
			v.notice = "Resumed"
		}
	default:
		v.notice = "Nothing to pause"
	}
	v.refresh()
}

// View renders the progress view.
func (v *View) View() string {
	var b strings.Builder
	p := v.snapshot

	title := "Indexing"
	if v.root != "" {
		title += " " + v.root
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")

	b.WriteString(v.renderStatus(p))
	b.WriteString("\n\n")
	b.WriteString(v.bar.ViewAs(p.Percent()))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Normal.Render(fmt.Sprintf("%d/%d files", p.Processed, p.Total)))
	if p.Failed > 0 {
		b.WriteString("  ")
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf("%d failed", p.Failed)))
	}
	if elapsed := elapsedOf(p); elapsed > 0 {
		b.WriteString("  ")
		b.WriteString(v.styles.Muted.Render(elapsed.Round(time.Second).String()))
	}
	b.WriteString("\n")

	if p.CurrentFile != "" && p.Status == domain.StatusIndexing {
		b.WriteString(v.styles.Muted.Render(filepath.Base(p.CurrentFile)))
		b.WriteString("\n")
	}
	if p.Error != "" {
		b.WriteString(v.styles.Error.Render(p.Error))
		b.WriteString("\n")
	}
	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	}
	if v.notice != "" {
		b.WriteString(v.styles.Muted.Render(v.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.standalone {
		b.WriteString(v.styles.Help.Render("[p] pause/resume  [q] cancel"))
	} else {
		b.WriteString(v.styles.Help.Render("[p] pause/resume  [esc] back"))
	}
	return b.String()
}

func (v *View) renderStatus(p domain.IndexingProgress) string {
	switch p.Status {
	case domain.StatusIndexing:
		return v.spinner.View() + " " + v.styles.Subtitle.Render("indexing")
	case domain.StatusPaused:
		return v.styles.Warning.Render("paused")
	case domain.StatusCompleted:
		return v.styles.Success.Render("completed")
	case domain.StatusError:
		return v.styles.Error.Render("error")
	case domain.StatusIdle:
	}
	return v.styles.Muted.Render("idle")
}

func elapsedOf(p domain.IndexingProgress) time.Duration {
	if p.StartTime == nil {
		return 0
	}
	end := time.Now()
	if p.EndTime != nil {
		end = *p.EndTime
	}
	return end.Sub(*p.StartTime)
}

// SetDimensions sizes the bar to the terminal.
func (v *View) SetDimensions(width, _ int) {
	v.width = width
	v.bar.Width = min(max(width-4, 10), 80)
}

// Snapshot returns the last progress the view rendered.
func (v *View) Snapshot() domain.IndexingProgress {
	return v.snapshot
}

// Done reports whether an IndexingFinished message arrived.
func (v *View) Done() bool {
	return v.done
}

// Err returns the error the run finished with, if any.
func (v *View) Err() error {
	return v.err
}
