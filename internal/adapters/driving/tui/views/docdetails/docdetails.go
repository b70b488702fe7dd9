// Package docdetails provides the document metadata view for the TUI.
package docdetails

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

const (
	timeLayout     = "2006-01-02 15:04:05"
	maxValueLength = 60
)

// View is the document details view.
type View struct {
	styles *styles.Styles

	details      *driving.DocumentDetails
	from         messages.ViewType
	scrollOffset int
	width        int
	height       int
	err          error
}

// NewView creates a new document details view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		from:   messages.ViewDocuments,
		width:  80,
		height: 24,
	}
}

// SetDetails sets the document details to display. Esc returns to from.
func (v *View) SetDetails(details *driving.DocumentDetails, from messages.ViewType) {
	v.details = details
	v.from = from
	v.scrollOffset = 0
	v.err = nil
}

// SetError sets an error to display.
func (v *View) SetError(err error) {
	v.err = err
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the document details view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

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
	case "enter":
		if v.details == nil {
			return v, nil
		}
		id, title, from := v.details.ID, v.details.Title, v.from
		return v, func() tea.Msg {
			return messages.DocumentSelected{DocumentID: id, Title: title, From: from}
		}
	case "o":
		if v.details == nil {
			return v, nil
		}
		id := v.details.ID
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

func (v *View) visibleLines() int {
	return max(v.height-6, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.buildContent())-v.visibleLines(), 0)
}

// buildContent lays out the details as label/value lines.
func (v *View) buildContent() []string {
	d := v.details
	if d == nil {
		return nil
	}

	lines := []string{
		formatField("ID", d.ID),
		formatField("Title", d.Title),
		formatField("Path", d.Path),
		formatField("Type", string(d.Type)),
		formatField("Size", humanSize(d.Size)),
		formatField("Chunks", fmt.Sprintf("%d", d.ChunkCount)),
	}

	for _, ts := range []struct {
		label string
		at    time.Time
	}{
		{"Created", d.Created},
		{"Modified", d.Modified},
		{"Indexed", d.Indexed},
	} {
		if !ts.at.IsZero() {
			lines = append(lines, formatField(ts.label, ts.at.Local().Format(timeLayout)))
		}
	}

	if len(d.Concepts) > 0 {
		lines = append(lines, "", "Concepts:")
		for _, c := range d.Concepts {
			lines = append(lines, "  • "+c)
		}
	}

	if len(d.Metadata) > 0 {
		lines = append(lines, "", "Metadata:")
		keys := make([]string, 0, len(d.Metadata))
		for k := range d.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("  %s: %s", k, clip(d.Metadata[k])))
		}
	}

	return lines
}

func formatField(label, value string) string {
	return fmt.Sprintf("%-10s %s", label+":", value)
}

func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > maxValueLength {
		return string(runes[:maxValueLength-3]) + "..."
	}
	return s
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// View renders the document details view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Document Details"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(v.width-4, 60)))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.details == nil:
		b.WriteString(v.styles.Muted.Render("No document details available"))
	default:
		v.renderLines(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] scroll  [enter] read  [o] open  [esc] back"))

	return b.String()
}

func (v *View) renderLines(b *strings.Builder) {
	lines := v.buildContent()
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(lines))

	for _, line := range lines[v.scrollOffset:end] {
		switch {
		case line == "Concepts:" || line == "Metadata:":
			b.WriteString(v.styles.Subtitle.Render(line))
		case strings.HasPrefix(line, "  "):
			b.WriteString(v.styles.Muted.Render(line))
		default:
			label, value, _ := strings.Cut(line, ":")
			b.WriteString(v.styles.Subtitle.Render(label + ":"))
			b.WriteString(v.styles.Normal.Render(value))
		}
		b.WriteString("\n")
	}

	if len(lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]",
			v.scrollOffset+1, end, len(lines))))
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.scrollOffset = min(v.scrollOffset, v.maxScrollOffset())
}

// Details returns the current document details.
func (v *View) Details() *driving.DocumentDetails {
	return v.details
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
