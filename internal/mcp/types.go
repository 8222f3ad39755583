// Package mcp maintains long-lived connections to external tool servers
// speaking the Model Context Protocol.
//
// The Manager owns one session per configured server, keeps them alive on a
// dedicated goroutine for the life of the process, aggregates the tools all
// servers expose into a single registry, and lets request-handling goroutines
// invoke tools through a bounded-latency bridge. Partial failure is the
// expected case: a server that is absent, slow, or misbehaving degrades the
// tool set without affecting the other servers.
package mcp

import (
	"encoding/json"
)

// ToolDefinition represents an MCP tool definition.
// Maps to the MCP protocol's Tool schema.
type ToolDefinition struct {
	// Name is the unique identifier for this tool
	Name string `json:"name"`

	// Description explains what the tool does
	Description string `json:"description"`

	// InputSchema defines the expected input parameters using JSON Schema
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolCallRequest represents a request to execute an MCP tool.
type ToolCallRequest struct {
	// Name is the tool to execute
	Name string `json:"name"`

	// Arguments contains the input parameters for the tool
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolCallResponse represents the result of an MCP tool execution.
type ToolCallResponse struct {
	// Content contains the tool's output
	Content []ContentItem `json:"content"`

	// IsError indicates if the tool execution failed
	IsError bool `json:"isError,omitempty"`
}

// ContentItem represents a piece of content in an MCP response.
type ContentItem struct {
	// Type is the content type (text, image, resource)
	Type string `json:"type"`

	// Text is the text content (for type="text")
	Text string `json:"text,omitempty"`

	// Data is the base64-encoded data (for type="image")
	Data string `json:"data,omitempty"`

	// MimeType is the MIME type for binary content
	MimeType string `json:"mimeType,omitempty"`

	// URI is the resource reference (for type="resource")
	URI string `json:"uri,omitempty"`
}

// ToolInfo pairs a tool definition with the name of the server that owns it.
// This is what an aggregate listing returns; the agent layer uses the server
// name to namespace tools and the manager uses it to route execution.
type ToolInfo struct {
	// Server is the owning server name
	Server string `json:"server"`

	// Tool is the tool definition as reported by that server
	Tool ToolDefinition `json:"tool"`
}

// ServerCapabilities describes what features a tool server supports.
type ServerCapabilities struct {
	// Tools indicates if the server provides tools
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability describes tool-related capabilities.
type ToolsCapability struct {
	// ListChanged indicates if the server sends notifications when tools change
	ListChanged bool `json:"listChanged,omitempty"`
}
