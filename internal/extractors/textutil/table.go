package textutil

import "strings"

// MarkdownTable renders rows as a Markdown table. The first row is the
// header. Short rows are padded to the widest row; pipes in cells are
// escaped and newlines collapsed so each record stays on one line.
func MarkdownTable(rows [][]string) string {
	rows = trimEmptyRows(rows)
	if len(rows) == 0 {
		return ""
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return ""
	}

	var b strings.Builder
	writeRow(&b, rows[0], width)
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range rows[1:] {
		writeRow(&b, r, width)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRow(b *strings.Builder, row []string, width int) {
	b.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(row) {
			cell = escapeCell(row[i])
		}
		b.WriteString(" ")
		b.WriteString(cell)
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func trimEmptyRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
