// Package markdown extracts Markdown documents, reading optional YAML
// front matter for title, author and tags.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/extractors/textutil"
	"github.com/custodia-labs/kindex/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Markdown documents.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedTypes returns the document types this extractor handles.
func (e *Extractor) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypeMarkdown}
}

// Extract returns the document text with Markdown formatting simplified.
func (e *Extractor) Extract(_ context.Context, path string) (*domain.Extraction, error) {
	data, err := textutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := textutil.NormaliseNewlines(string(data))
	fm, body := splitFrontMatter(raw)

	meta := domain.ExtractionMetadata{
		Type:     domain.DocumentTypeMarkdown,
		MIMEType: "text/markdown",
		Title:    strings.TrimSpace(fm.Title),
		Author:   strings.TrimSpace(fm.Author),
		Tags:     fm.Tags,
	}
	if meta.Title == "" {
		meta.Title = extractMarkdownTitle(body)
	}

	return textutil.Finish(path, stripMarkdown(body), meta)
}

// frontMatter holds the recognised YAML front matter keys.
type frontMatter struct {
	Title  string  `yaml:"title"`
	Author string  `yaml:"author"`
	Tags   tagList `yaml:"tags"`
}

// tagList accepts either a YAML sequence or a comma-separated string.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*t = list
	case yaml.ScalarNode:
		for _, part := range strings.Split(node.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*t = append(*t, part)
			}
		}
	}
	return nil
}

// splitFrontMatter separates a leading "---" YAML block from the body.
// Malformed front matter is left in the body.
func splitFrontMatter(content string) (frontMatter, string) {
	var fm frontMatter
	if !strings.HasPrefix(content, "---\n") {
		return fm, content
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return fm, content
	}
	block := rest[:end]
	body := strings.TrimPrefix(rest[end+len("\n---"):], "\n")

	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		logger.Debug("markdown: ignoring malformed front matter: %v", err)
		return frontMatter{}, content
	}
	return fm, body
}

// extractMarkdownTitle returns the first H1 heading, or "" if none.
func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

var (
	codeFence    = regexp.MustCompile("(?m)^```[^\n]*$")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|_)([^*_\n]+)(\*\*|__|\*|_)`)
	blockquote   = regexp.MustCompile(`(?m)^>\s?`)
	rule         = regexp.MustCompile(`(?m)^\s*[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^(\s*)\d+\.\s+`)
	manyNewlines = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common Markdown formatting. Code block contents
// and table rows are kept as text.
func stripMarkdown(content string) string {
	content = codeFence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	content = blockquote.ReplaceAllString(content, "")
	content = rule.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "$1")
	content = numberedList.ReplaceAllString(content, "$1")
	content = manyNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
