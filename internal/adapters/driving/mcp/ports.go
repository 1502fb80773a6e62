package mcp

import (
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP server.
type Ports struct {
	// Index creates and reports on indexing jobs.
	Index driving.IndexService

	// Chat answers questions against a job.
	Chat driving.ChatService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Index == nil {
		return ErrMissingIndexService
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
