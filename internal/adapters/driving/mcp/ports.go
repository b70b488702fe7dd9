package mcp

import (
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// KnowledgeBase serves search, documents, graph and indexing.
	KnowledgeBase driving.KnowledgeBase
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.KnowledgeBase == nil {
		return ErrMissingKnowledgeBase
	}
	return nil
}
