// Package tui provides an interactive terminal user interface for sercha-rag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"errors"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var (
	ErrInvalidPorts         = errors.New("tui: no ports given")
	ErrMissingSearchService = errors.New("tui: search service is required")
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Search is required.
	Search driving.SearchService

	// Chat enables the ask view. Nil when no language model is configured.
	Chat driving.ChatService

	// System lists collections and manages the search cache.
	System driving.SystemService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
