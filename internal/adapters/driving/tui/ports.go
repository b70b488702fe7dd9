// Package tui provides an interactive terminal user interface for kindex.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// KnowledgeBase serves search, documents and indexing progress.
	KnowledgeBase driving.KnowledgeBase
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.KnowledgeBase == nil {
		return ErrMissingKnowledgeBase
	}
	return nil
}
