// Package mcp provides an MCP (Model Context Protocol) server adapter for foldertalk.
// It lets AI assistants index Drive folders and ask questions about them.
package mcp

import "errors"

var (
	// ErrMissingIndexService is returned when the index service is not provided.
	ErrMissingIndexService = errors.New("mcp: index service is required")

	// ErrMissingChatService is returned when the chat service is not provided.
	ErrMissingChatService = errors.New("mcp: chat service is required")
)
