package tui

import "errors"

// ErrMissingKnowledgeBase is returned when no knowledge base is provided.
var ErrMissingKnowledgeBase = errors.New("tui: knowledge base is required")
