// Package mcp provides an MCP (Model Context Protocol) server adapter for kindex.
// It lets AI assistants search, read and index the local knowledge base.
package mcp

import "errors"

// ErrMissingKnowledgeBase is returned when no knowledge base is provided.
var ErrMissingKnowledgeBase = errors.New("mcp: knowledge base is required")
