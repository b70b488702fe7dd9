// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/kindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kindex/internal/core/domain"
)

// linesPerResult is the rendered height of one result.
const linesPerResult = 3

// ResultList displays search results in a navigable list.
type ResultList struct {
	results  []domain.SearchResult
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// View renders the visible window of results around the selection.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.results)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results))), "")

	visibleCount := (r.height - 2) / linesPerResult
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(r.results))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}

	return strings.Join(lines, "\n")
}

func (r *ResultList) renderResult(index int, result *domain.SearchResult) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	title := result.Title
	if title == "" {
		title = "(Untitled)"
	}
	maxTitleLen := max(r.width-24, 10)
	title = truncate(title, maxTitleLen)

	relevance := fmt.Sprintf("%3.0f%%", result.Relevance*100)
	badge := r.styles.Badge.Render(string(result.Metadata.MatchType))

	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitleLen, title, relevance))
	} else {
		titleLine = r.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitleLen, title)) +
			r.styles.Muted.Render(relevance)
	}
	titleLine += badge

	pathLine := r.styles.Muted.Render("    " + truncate(result.Path, max(r.width-6, 20)))
	snippetLine := "    " + r.renderSnippet(truncate(flatten(result.Snippet), max(r.width-6, 20)))

	return titleLine + "\n" + pathLine + "\n" + snippetLine
}

// renderSnippet styles the **term** markers produced by search.
func (r *ResultList) renderSnippet(snippet string) string {
	parts := strings.Split(snippet, "**")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i%2 == 1 {
			b.WriteString(r.styles.Highlight.Render(part))
		} else {
			b.WriteString(r.styles.Muted.Render(part))
		}
	}
	return b.String()
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// SetResults replaces the results and resets the selection.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.results = results
	r.selected = 0
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchResult {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
