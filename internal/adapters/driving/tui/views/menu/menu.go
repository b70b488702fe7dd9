// Package menu provides the main navigation menu view for the TUI.
package menu

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/styles"
)

const defaultSubtitle = "Local knowledge base"

// Item represents a single menu option.
type Item struct {
	Label string
	View  messages.ViewType
	Quit  bool
}

// View represents the main menu view.
type View struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	items    []Item
	selected int
	subtitle string
}

// NewView creates a new menu view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles: s,
		keymap: keymap.DefaultKeyMap(),
		items: []Item{
			{Label: "Search", View: messages.ViewSearch},
			{Label: "Documents", View: messages.ViewDocuments},
			{Label: "Indexing", View: messages.ViewProgress},
			{Label: "Help", View: messages.ViewHelp},
			{Label: "Quit", Quit: true},
		},
		subtitle: defaultSubtitle,
	}
}

// SetSubtitle replaces the line under the title, e.g. with index stats.
func (v *View) SetSubtitle(subtitle string) {
	if subtitle == "" {
		subtitle = defaultSubtitle
	}
	v.subtitle = subtitle
}

// Init initialises the menu view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	key := keyMsg.String()
	switch {
	case keymap.Matches(key, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.selected < len(v.items)-1 {
			v.selected++
		}
	case keymap.Matches(key, v.keymap.Select):
		item := v.items[v.selected]
		if item.Quit {
			return v, tea.Quit
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: item.View}
		}
	case keymap.Matches(key, v.keymap.Help):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewHelp}
		}
	case keymap.Matches(key, v.keymap.Quit):
		return v, tea.Quit
	}

	return v, nil
}

// View renders the menu.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("kindex"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render(v.subtitle))
	b.WriteString("\n\n")

	for i, item := range v.items {
		if i == v.selected {
			b.WriteString("> " + v.styles.Subtitle.Render(item.Label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(item.Label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [enter] select  [?] help  [q] quit"))

	return b.String()
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}

// Items returns the menu entries.
func (v *View) Items() []Item {
	return v.items
}
