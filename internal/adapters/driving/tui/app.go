package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/views/doccontent"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/views/docdetails"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/views/progress"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	kb     driving.KnowledgeBase
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	menuView       *menu.View
	searchView     *search.View
	documentsView  *documents.View
	docContentView *doccontent.View
	docDetailsView *docdetails.View
	progressView   *progress.View

	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	kb := ports.KnowledgeBase
	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		kb:             kb,
		ctx:            context.Background(),
		styles:         s,
		keymap:         km,
		help:           help.New(),
		menuView:       menu.NewView(s),
		searchView:     search.NewView(s, km, kb, true),
		documentsView:  documents.NewView(s, kb),
		docContentView: doccontent.NewView(s, kb),
		docDetailsView: docdetails.NewView(s),
		progressView:   progress.NewView(s, kb),
		currentView:    messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	a.docContentView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	if n := len(a.kb.WatchedPaths()); n > 0 {
		a.menuView.SetSubtitle(fmt.Sprintf("Local knowledge base, watching %d director%s", n, plural(n, "y", "ies")))
	}
	return tea.SetWindowTitle("kindex")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Update implements tea.Model.
//
//nolint:gocyclo,funlen // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc || msg.String() == "q" {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		a.err = nil
		switch msg.View {
		case messages.ViewSearch:
			a.searchView.Reset()
			return a, a.searchView.Init()
		case messages.ViewDocuments:
			return a, a.documentsView.Init()
		case messages.ViewProgress:
			return a, a.progressView.Init()
		case messages.ViewMenu, messages.ViewDocContent, messages.ViewDocDetails, messages.ViewHelp:
		}
		return a, nil

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.DocumentSelected:
		a.currentView = messages.ViewDocContent
		return a, a.docContentView.SetDocument(msg.DocumentID, msg.Title, msg.From)

	case messages.DocumentContentLoaded:
		a.docContentView, cmd = a.docContentView.Update(msg)
		return a, cmd

	case messages.DetailsRequested:
		return a, a.loadDetails(msg.DocumentID, msg.From)

	case detailsLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, a.forward(messages.ErrorOccurred{Err: msg.Err})
		}
		a.docDetailsView.SetDetails(msg.Details, msg.from)
		a.currentView = messages.ViewDocDetails
		return a, nil

	case messages.OpenRequested:
		return a, a.openDocument(msg.DocumentID)

	case messages.DocumentsLoaded, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward passes msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocContent:
		a.docContentView, cmd = a.docContentView.Update(msg)
	case messages.ViewDocDetails:
		a.docDetailsView, cmd = a.docDetailsView.Update(msg)
	case messages.ViewProgress:
		a.progressView, cmd = a.progressView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// detailsLoaded carries details plus the view to return to.
type detailsLoaded struct {
	messages.DocumentDetailsLoaded
	from messages.ViewType
}

func (a *App) loadDetails(id string, from messages.ViewType) tea.Cmd {
	kb, ctx := a.kb, a.ctx
	return func() tea.Msg {
		details, err := kb.GetDocumentDetails(ctx, id)
		if err != nil {
			err = fmt.Errorf("loading details for %s: %w", id, err)
		}
		return detailsLoaded{
			DocumentDetailsLoaded: messages.DocumentDetailsLoaded{DocumentID: id, Details: details, Err: err},
			from:                  from,
		}
	}
}

func (a *App) openDocument(id string) tea.Cmd {
	kb, ctx := a.kb, a.ctx
	return func() tea.Msg {
		return messages.DocumentOpened{DocumentID: id, Err: kb.OpenDocument(ctx, id)}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewMenu:
		return a.menuView.View()
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewDocContent:
		return a.docContentView.View()
	case messages.ViewDocDetails:
		return a.docDetailsView.View()
	case messages.ViewProgress:
		return a.progressView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	b.WriteString(a.help.FullHelpView(a.keymap.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Muted.Render("Search results and documents open in the reader; " +
		"snippets highlight matched terms."))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back to menu"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sizes the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.help.Width = width

	a.searchView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.docContentView.SetDimensions(width, height)
	a.docDetailsView.SetDimensions(width, height)
	a.progressView.SetDimensions(width, height)
}
