package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// Enrichment limits.
const (
	summaryMaxWords      = 150
	keyPointsMax         = 5
	enrichmentInputChars = 12000
)

// Fallback prompts when no PromptStore is configured.
const (
	defaultSummarisePrompt = `Summarise the following document in at most %d words.

Document:
%s

Summary:`

	defaultKeyPointsPrompt = `List the %d most important points of the following document, one per line.

Document:
%s

Key points:`
)

// Enricher asks the completion service for document summaries and key points.
type Enricher struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewEnricher creates an enricher. prompts may be nil.
func NewEnricher(llm driven.LLMService, prompts driven.PromptStore) *Enricher {
	return &Enricher{llm: llm, prompts: prompts}
}

// Available reports whether a completion service is configured.
func (e *Enricher) Available() bool {
	return e != nil && e.llm != nil
}

// Summarise returns a short prose summary of content.
func (e *Enricher) Summarise(ctx context.Context, content string) (string, error) {
	if !e.Available() {
		return "", fmt.Errorf("summarise: no completion service")
	}
	prompt := fmt.Sprintf(loadPrompt(e.prompts, driven.PromptSummarise, defaultSummarisePrompt),
		summaryMaxWords, clip(content, enrichmentInputChars))

	out, err := e.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   summaryMaxWords * 2,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// KeyPoints returns up to five key points, one per returned string.
func (e *Enricher) KeyPoints(ctx context.Context, content string) ([]string, error) {
	if !e.Available() {
		return nil, fmt.Errorf("key points: no completion service")
	}
	prompt := fmt.Sprintf(loadPrompt(e.prompts, driven.PromptKeyPoints, defaultKeyPointsPrompt),
		keyPointsMax, clip(content, enrichmentInputChars))

	out, err := e.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   400,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("key points: %w", err)
	}
	return parseKeyPoints(out, keyPointsMax), nil
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// parseKeyPoints strips list markers and blank lines.
func parseKeyPoints(raw string, limit int) []string {
	var points []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		points = append(points, line)
		if len(points) == limit {
			break
		}
	}
	return points
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

// clip truncates s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
