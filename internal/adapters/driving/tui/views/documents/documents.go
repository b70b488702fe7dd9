// Package documents provides the indexed documents list view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kindex/internal/core/domain"
)

// listLimit caps the documents loaded into the view.
const listLimit = 500

// ErrNoLibrary indicates the view was built without a document library.
var ErrNoLibrary = errors.New("documents: document library is required")

// Library lists and removes indexed documents.
type Library interface {
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
}

// Action is an entry in the per-document action menu.
type Action int

const (
	ActionShowContent Action = iota
	ActionShowDetails
	ActionOpenDocument
	ActionDelete
	ActionCancel
)

var actionLabels = [...]string{
	ActionShowContent:  "Read content",
	ActionShowDetails:  "Show details",
	ActionOpenDocument: "Open document",
	ActionDelete:       "Remove from index",
	ActionCancel:       "Cancel",
}

// String returns the menu label.
func (a Action) String() string {
	if a < 0 || int(a) >= len(actionLabels) {
		return "unknown"
	}
	return actionLabels[a]
}

// View is the documents list view.
type View struct {
	styles  *styles.Styles
	library Library
	ctx     context.Context

	documents    []domain.Document
	selected     int
	scrollOffset int
	width        int
	height       int
	err          error
	notice       string
	loading      bool
	showingMenu  bool
	menuSelected Action
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, library Library) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:  s,
		library: library,
		ctx:     context.Background(),
		width:   80,
		height:  24,
	}
}

// WithContext sets the context documents are loaded under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	v.showingMenu = false
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	library, ctx := v.library, v.ctx
	return func() tea.Msg {
		if library == nil {
			return messages.DocumentsLoaded{Err: ErrNoLibrary}
		}
		docs, err := library.ListDocuments(ctx, domain.DocumentFilter{Limit: listLimit})
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) deleteDocument(id string) tea.Cmd {
	library, ctx := v.library, v.ctx
	return func() tea.Msg {
		if library == nil {
			return messages.DocumentDeleted{DocumentID: id, Err: ErrNoLibrary}
		}
		_, err := library.DeleteDocument(ctx, id)
		return messages.DocumentDeleted{DocumentID: id, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.showingMenu {
			return v.handleMenuKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.documents = msg.Documents
			v.selected = min(v.selected, max(len(v.documents)-1, 0))
			v.adjustScroll()
		}
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = "Removed " + msg.DocumentID
		return v, v.loadDocuments()

	case messages.DocumentOpened:
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.notice = "Opening document..."
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
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if len(v.documents) > 0 {
			v.showingMenu = true
			v.menuSelected = ActionShowContent
		}
	case "r":
		v.err = nil
		v.notice = ""
		v.loading = true
		return v, v.loadDocuments()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	return v, nil
}

func (v *View) handleMenuKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.menuSelected > ActionShowContent {
			v.menuSelected--
		}
	case "down", "j":
		if v.menuSelected < ActionCancel {
			v.menuSelected++
		}
	case "enter":
		return v.handleMenuSelect()
	case "esc":
		v.showingMenu = false
	}

	return v, nil
}

func (v *View) handleMenuSelect() (*View, tea.Cmd) {
	v.showingMenu = false
	doc := v.SelectedDocument()
	if doc == nil {
		return v, nil
	}
	id, title := doc.ID, doc.Title

	switch v.menuSelected {
	case ActionShowContent:
		return v, func() tea.Msg {
			return messages.DocumentSelected{DocumentID: id, Title: title, From: messages.ViewDocuments}
		}
	case ActionShowDetails:
		return v, func() tea.Msg {
			return messages.DetailsRequested{DocumentID: id, From: messages.ViewDocuments}
		}
	case ActionOpenDocument:
		return v, func() tea.Msg {
			return messages.OpenRequested{DocumentID: id}
		}
	case ActionDelete:
		return v, v.deleteDocument(id)
	case ActionCancel:
	}

	return v, nil
}

// adjustScroll keeps the selected item visible.
func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

// visibleItemCount reserves room for the title, help and indicator.
func (v *View) visibleItemCount() int {
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("Nothing indexed yet. Run `kindex index <path>` to add documents."))
	case v.showingMenu:
		b.WriteString(v.renderActionMenu())
		return b.String()
	default:
		v.renderList(&b)
	}

	if v.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(v.styles.Success.Render(v.notice))
	}
	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [enter] actions  [r] refresh  [esc] back"))

	return b.String()
}

func (v *View) renderList(b *strings.Builder) {
	visible := v.visibleItemCount()
	end := min(v.scrollOffset+visible, len(v.documents))
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.renderDocument(i, &v.documents[i]))
		b.WriteString("\n")
	}

	if len(v.documents) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1, end, len(v.documents))))
	}
}

func (v *View) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	half := max(v.width/2-10, 10)
	title = clipRight(title, half)
	path := clipLeft(doc.Path, half)

	line := fmt.Sprintf("%s%-*s %-8s ", indicator, half, title, doc.Type)
	if index == v.selected {
		return v.styles.Selected.Render(line) + v.styles.Muted.Render(path)
	}
	return v.styles.Normal.Render(line) + v.styles.Muted.Render(path)
}

func (v *View) renderActionMenu() string {
	doc := v.SelectedDocument()
	if doc == nil {
		return ""
	}

	var b strings.Builder
	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	b.WriteString(v.styles.Subtitle.Render(title))
	b.WriteString("\n\n")

	for a := ActionShowContent; a <= ActionCancel; a++ {
		if a == v.menuSelected {
			b.WriteString(v.styles.Selected.Render("> " + a.String()))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + a.String()))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [enter] select  [esc] cancel"))
	return b.String()
}

func clipRight(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// clipLeft keeps the end of s, which is the informative part of a path.
func clipLeft(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return "..." + string(runes[len(runes)-n+3:])
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// SelectedDocument returns the highlighted document, or nil.
func (v *View) SelectedDocument() *domain.Document {
	if v.selected < 0 || v.selected >= len(v.documents) {
		return nil
	}
	return &v.documents[v.selected]
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
