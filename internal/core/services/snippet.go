package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Snippet window sizes, in characters.
const (
	snippetLookBack  = 100
	snippetMaxLength = 240
	snippetEllipsis  = "..."
	highlightMarker  = "**"
)

// Snippet extracts an excerpt of text around the earliest query term and
// wraps matched terms in **. Terms shorter than three characters are ignored.
// Without a match the excerpt starts at the beginning of text.
func Snippet(text, query string) string {
	text = collapseSpace(text)
	if text == "" {
		return ""
	}
	terms := snippetTerms(query)

	lower := strings.ToLower(text)
	first := -1
	for _, t := range terms {
		if i := strings.Index(lower, t); i >= 0 && (first < 0 || i < first) {
			first = i
		}
	}

	// Lowercasing can change byte lengths outside ASCII.
	if first >= len(text) {
		first = -1
	}

	start := 0
	if first > 0 {
		start = sentenceStart(text, first)
	}

	excerpt := text[start:]
	clipped := false
	if utf8.RuneCountInString(excerpt) > snippetMaxLength {
		excerpt = string([]rune(excerpt)[:snippetMaxLength])
		clipped = true
	}
	excerpt = strings.TrimSpace(excerpt)

	excerpt = highlight(excerpt, terms)
	if start > 0 {
		excerpt = snippetEllipsis + excerpt
	}
	if clipped {
		excerpt += snippetEllipsis
	}
	return excerpt
}

// sentenceStart walks back from pos to the nearest sentence boundary within
// the look-back window, or to the window start.
func sentenceStart(text string, pos int) int {
	floor := max(pos-snippetLookBack, 0)
	for floor > 0 && !utf8.RuneStart(text[floor]) {
		floor++
	}
	for i := pos - 1; i > floor; i-- {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && text[i+1] == ' ' {
				return i + 2
			}
		}
	}
	return floor
}

func snippetTerms(query string) []string {
	var terms []string
	seen := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(f) <= 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func highlight(text string, terms []string) string {
	if len(terms) == 0 {
		return text
	}
	// Longest first so a term never masks a longer one it prefixes.
	sorted := append([]string(nil), terms...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, t := range sorted {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re := regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
	return re.ReplaceAllString(text, highlightMarker+"$1"+highlightMarker)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
