// Package search provides the main search view for the TUI.
package search

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kindex/internal/core/domain"
)

// defaultLimit is the number of results requested per search.
const defaultLimit = 20

// Searcher runs queries against the knowledge base.
type Searcher interface {
	SearchDocuments(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

// View represents the search view with input, results list and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.SearchInput
	list      *list.ResultList
	statusbar *status.Bar

	searcher Searcher
	ctx      context.Context

	width      int
	height     int
	ready      bool
	err        error
	semantic   bool
	focusInput bool // true = typing a query, false = navigating results
}

// NewView creates a new search view. Searches start in semantic mode
// when semantic is true.
func NewView(s *styles.Styles, km *keymap.KeyMap, searcher Searcher, semantic bool) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetSemantic(semantic)

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewSearchInput(s),
		list:       list.NewResultList(s),
		statusbar:  bar,
		searcher:   searcher,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		semantic:   semantic,
		focusInput: true,
	}
}

// WithContext sets the context searches run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.DocumentOpened:
		if msg.Err != nil {
			v.statusbar.SetMessage("Open: " + msg.Err.Error())
		} else {
			v.statusbar.SetMessage("Opening document...")
		}
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if keymap.Matches(msg.String(), v.keymap.ToggleSemantic) {
		v.semantic = !v.semantic
		v.statusbar.SetSemantic(v.semantic)
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			query := strings.TrimSpace(v.input.Value())
			if query == "" {
				return v, nil
			}
			v.statusbar.SetState(status.StateSearching)
			v.statusbar.SetMessage("")
			return v, v.performSearch(query)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(key, v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(key, v.keymap.NewSearch):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case keymap.Matches(key, v.keymap.Select):
		if r := v.list.SelectedResult(); r != nil {
			return v, selectDocument(r)
		}
	case keymap.Matches(key, v.keymap.Details):
		if r := v.list.SelectedResult(); r != nil {
			id := r.DocumentID
			return v, func() tea.Msg {
				return messages.DetailsRequested{DocumentID: id, From: messages.ViewSearch}
			}
		}
	case keymap.Matches(key, v.keymap.Open):
		if r := v.list.SelectedResult(); r != nil {
			id := r.DocumentID
			return v, func() tea.Msg {
				return messages.OpenRequested{DocumentID: id}
			}
		}
	}

	return v, nil
}

func selectDocument(r *domain.SearchResult) tea.Cmd {
	msg := messages.DocumentSelected{DocumentID: r.DocumentID, Title: r.Title, From: messages.ViewSearch}
	return func() tea.Msg { return msg }
}

// performSearch returns a command that runs the query.
func (v *View) performSearch(query string) tea.Cmd {
	searcher := v.searcher
	ctx := v.ctx
	opts := domain.SearchOptions{Limit: defaultLimit, UseSemanticSearch: v.semantic}

	return func() tea.Msg {
		if searcher == nil {
			return messages.ErrorOccurred{Err: ErrNoSearcher}
		}
		results, err := searcher.SearchDocuments(ctx, query, opts)
		return messages.SearchCompleted{Query: query, Results: results, Err: err}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Results))

	if len(msg.Results) > 0 {
		v.focusInput = false
		v.input.Blur()
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("kindex"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View(), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the search query.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the current search results.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedResult returns the currently selected result.
func (v *View) SelectedResult() *domain.SearchResult {
	return v.list.SelectedResult()
}

// Semantic reports whether the next search runs in semantic mode.
func (v *View) Semantic() bool {
	return v.semantic
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset returns the view to input mode with no results.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.err = nil
	v.statusbar.Clear()
}
