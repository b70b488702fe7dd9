// Package doccontent provides the document reader view for the TUI.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/styles"
)

// ErrNoLoader indicates the view was built without a content loader.
var ErrNoLoader = errors.New("doccontent: content loader is required")

// ContentLoader fetches the reassembled text of a document.
type ContentLoader interface {
	GetDocumentContent(ctx context.Context, id string) (string, error)
}

// View is the document content view.
type View struct {
	styles *styles.Styles
	loader ContentLoader
	ctx    context.Context

	documentID   string
	title        string
	from         messages.ViewType
	content      string
	lines        []string
	scrollOffset int
	width        int
	height       int
	err          error
	loading      bool
}

// NewView creates a new document content view.
func NewView(s *styles.Styles, loader ContentLoader) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		loader: loader,
		ctx:    context.Background(),
		from:   messages.ViewDocuments,
		width:  80,
		height: 24,
	}
}

// WithContext sets the context content is loaded under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetDocument switches to a document and returns the command that loads it.
// Esc returns to from.
func (v *View) SetDocument(id, title string, from messages.ViewType) tea.Cmd {
	v.documentID = id
	v.title = title
	v.from = from
	v.content = ""
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
	return v.loadContent()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

func (v *View) loadContent() tea.Cmd {
	loader, ctx, id := v.loader, v.ctx, v.documentID
	return func() tea.Msg {
		if loader == nil {
			return messages.DocumentContentLoaded{DocumentID: id, Err: ErrNoLoader}
		}
		content, err := loader.GetDocumentContent(ctx, id)
		return messages.DocumentContentLoaded{DocumentID: id, Content: content, Err: err}
	}
}

// Update handles messages for the document content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentContentLoaded:
		if msg.DocumentID != v.documentID {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.content = msg.Content
			v.wrapContent()
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
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "d":
		id, from := v.documentID, v.from
		return v, func() tea.Msg {
			return messages.DetailsRequested{DocumentID: id, From: from}
		}
	case "o":
		id := v.documentID
		return v, func() tea.Msg {
			return messages.OpenRequested{DocumentID: id}
		}
	case "esc":
		from := v.from
		return v, func() tea.Msg {
			return messages.ViewChanged{View: from}
		}
	}

	return v, nil
}

// wrapContent splits the content into display lines no wider than the view.
func (v *View) wrapContent() {
	if v.content == "" {
		v.lines = nil
		return
	}

	contentWidth := max(v.width-4, 20)
	rawLines := strings.Split(v.content, "\n")
	v.lines = make([]string, 0, len(rawLines))

	for _, line := range rawLines {
		runes := []rune(line)
		for len(runes) > contentWidth {
			v.lines = append(v.lines, string(runes[:contentWidth]))
			runes = runes[contentWidth:]
		}
		v.lines = append(v.lines, string(runes))
	}
	v.scrollOffset = min(v.scrollOffset, v.maxScrollOffset())
}

// visibleLines reserves room for the title, separator and help.
func (v *View) visibleLines() int {
	return max(v.height-6, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the document content view.
func (v *View) View() string {
	var b strings.Builder

	title := v.title
	if title == "" {
		title = v.documentID
	}
	if title == "" {
		title = "Document Content"
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(v.width-4, 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading content..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		v.renderLines(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [d] details  [o] open  [esc] back"))

	return b.String()
}

func (v *View) renderLines(b *strings.Builder) {
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.styles.Normal.Render(v.lines[i]))
		b.WriteString("\n")
	}

	if len(v.lines) > visible {
		percentage := 0
		if v.maxScrollOffset() > 0 {
			percentage = v.scrollOffset * 100 / v.maxScrollOffset()
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			percentage, v.scrollOffset+1, end, len(v.lines))))
	}
}

// SetDimensions sets the view dimensions and rewraps the content.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.wrapContent()
}

// DocumentID returns the document being shown.
func (v *View) DocumentID() string {
	return v.documentID
}

// Content returns the document content.
func (v *View) Content() string {
	return v.content
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
