// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
)

// SessionStatus is the lifecycle status of a session.
type SessionStatus string

const (
	// SessionConnecting means the transport is open but the handshake has not completed.
	SessionConnecting SessionStatus = "connecting"
	// SessionReady means the initialize handshake succeeded.
	SessionReady SessionStatus = "ready"
	// SessionClosed means the session has been torn down.
	SessionClosed SessionStatus = "closed"
)

// Session is a live connection to one tool server. It wraps the protocol
// client, tracks lifecycle status, and converts wire types to the package's
// own. Protocol calls are only valid while the session is ready.
type Session struct {
	// serverName is the configured name of this server
	serverName string

	// def is the immutable definition the session was dialed from
	def *ServerDefinition

	// client is the underlying MCP protocol client
	client *client.Client

	// capabilities tracks what the server reported during the handshake
	capabilities *ServerCapabilities

	// process is the backing OS process for stdio transports (nil for HTTP)
	process ProcessHandle

	// mu protects status
	mu sync.RWMutex

	// status is the current lifecycle status
	status SessionStatus
}

// NewSession opens a transport for the given definition and performs the
// initialize handshake followed by a ping. On any failure the partially
// established transport is unwound before the error is returned.
func NewSession(ctx context.Context, serverName string, def *ServerDefinition) (*Session, error) {
	if !ServerNameRegex.MatchString(serverName) {
		return nil, ErrInvalidServerName(serverName)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	mcpClient, err := newTransportClient(def)
	if err != nil {
		return nil, ErrConnectFailed(serverName, err)
	}

	var stack closerStack
	stack.push(mcpClient.Close)

	if err := mcpClient.Start(ctx); err != nil {
		_ = stack.unwind()
		return nil, ErrConnectFailed(serverName, fmt.Errorf("failed to start transport: %w", err))
	}

	s := &Session{
		serverName: serverName,
		def:        def,
		client:     mcpClient,
		process:    extractProcess(mcpClient),
		status:     SessionConnecting,
	}

	if err := s.initialize(ctx); err != nil {
		_ = stack.unwind()
		return nil, ErrConnectFailed(serverName, err)
	}

	if err := s.Ping(ctx); err != nil {
		_ = stack.unwind()
		return nil, ErrConnectFailed(serverName, fmt.Errorf("post-handshake ping failed: %w", err))
	}

	s.mu.Lock()
	s.status = SessionReady
	s.mu.Unlock()

	return s, nil
}

// initialize performs the MCP initialize handshake and records the server's
// capabilities.
func (s *Session) initialize(ctx context.Context) error {
	initReq := mcpproto.InitializeRequest{
		Params: mcpproto.InitializeParams{
			ProtocolVersion: mcpproto.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcpproto.ClientCapabilities{},
			ClientInfo: mcpproto.Implementation{
				Name:    "finassist",
				Version: "0.1.0",
			},
		},
	}

	if _, err := s.client.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("initialize request failed: %w", err)
	}

	serverCaps := s.client.GetServerCapabilities()
	s.capabilities = &ServerCapabilities{}
	if serverCaps.Tools != nil {
		s.capabilities.Tools = &ToolsCapability{
			ListChanged: serverCaps.Tools.ListChanged,
		}
	}

	return nil
}

// ServerName returns the configured name of this server.
func (s *Session) ServerName() string {
	return s.serverName
}

// Status returns the session lifecycle status.
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Capabilities returns the capabilities the server reported during the
// handshake, or nil before it completed.
func (s *Session) Capabilities() *ServerCapabilities {
	return s.capabilities
}

// Process returns the backing OS process for stdio transports.
// Returns nil for HTTP transports or if the process could not be resolved.
func (s *Session) Process() ProcessHandle {
	return s.process
}

// ListTools retrieves the tools this server currently exposes.
func (s *Session) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	if s.Status() != SessionReady {
		return nil, ErrSessionNotReady(s.serverName)
	}

	result, err := s.client.ListTools(ctx, mcpproto.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	tools := make([]ToolDefinition, len(result.Tools))
	for i, tool := range result.Tools {
		schemaBytes, err := rawInputSchema(tool)
		if err != nil {
			return nil, err
		}
		tools[i] = ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schemaBytes,
		}
	}

	return tools, nil
}

// rawInputSchema extracts the raw JSON Schema for a tool's input.
// Prefers the server's verbatim schema; falls back to re-marshalling the
// typed schema the client library parsed.
func rawInputSchema(tool mcpproto.Tool) (json.RawMessage, error) {
	if len(tool.RawInputSchema) > 0 {
		return json.RawMessage(tool.RawInputSchema), nil
	}

	toolBytes, err := tool.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool %s: %w", tool.Name, err)
	}
	var toolMap map[string]interface{}
	if err := json.Unmarshal(toolBytes, &toolMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool %s: %w", tool.Name, err)
	}
	inputSchema, ok := toolMap["inputSchema"]
	if !ok {
		return nil, nil
	}
	schemaBytes, err := json.Marshal(inputSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema for %s: %w", tool.Name, err)
	}
	return schemaBytes, nil
}

// CallTool executes a tool on this server. The caller owns cancellation;
// no timeout is applied here.
func (s *Session) CallTool(ctx context.Context, req ToolCallRequest) (*ToolCallResponse, error) {
	if s.Status() != SessionReady {
		return nil, ErrSessionNotReady(s.serverName)
	}

	mcpReq := mcpproto.CallToolRequest{
		Params: mcpproto.CallToolParams{
			Name:      req.Name,
			Arguments: req.Arguments,
		},
	}

	result, err := s.client.CallTool(ctx, mcpReq)
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}

	response := &ToolCallResponse{
		IsError: result.IsError,
		Content: make([]ContentItem, len(result.Content)),
	}

	for i, content := range result.Content {
		item, err := decodeContent(content)
		if err != nil {
			return nil, err
		}
		response.Content[i] = item
	}

	return response, nil
}

// decodeContent converts one protocol content value into a ContentItem.
func decodeContent(content mcpproto.Content) (ContentItem, error) {
	if textContent, ok := mcpproto.AsTextContent(content); ok {
		return ContentItem{Type: textContent.Type, Text: textContent.Text}, nil
	}
	if imageContent, ok := mcpproto.AsImageContent(content); ok {
		return ContentItem{
			Type:     imageContent.Type,
			Data:     imageContent.Data,
			MimeType: imageContent.MIMEType,
		}, nil
	}

	// Fallback: marshal to JSON to extract fields from content types the
	// library has no helper for (resources, future additions).
	contentBytes, err := json.Marshal(content)
	if err != nil {
		return ContentItem{}, fmt.Errorf("failed to marshal content: %w", err)
	}
	var contentMap map[string]interface{}
	if err := json.Unmarshal(contentBytes, &contentMap); err != nil {
		return ContentItem{}, fmt.Errorf("failed to unmarshal content: %w", err)
	}

	item := ContentItem{}
	if contentType, ok := contentMap["type"].(string); ok {
		item.Type = contentType
	}
	if text, ok := contentMap["text"].(string); ok {
		item.Text = text
	}
	if data, ok := contentMap["data"].(string); ok {
		item.Data = data
	}
	if mimeType, ok := contentMap["mimeType"].(string); ok {
		item.MimeType = mimeType
	}
	if uri, ok := contentMap["uri"].(string); ok {
		item.URI = uri
	}
	return item, nil
}

// Ping checks that the server is still responsive.
func (s *Session) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		if err == io.EOF {
			return fmt.Errorf("server connection closed")
		}
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close tears down the session. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.status == SessionClosed {
		s.mu.Unlock()
		return nil
	}
	s.status = SessionClosed
	s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close session %s: %w", s.serverName, err)
	}
	return nil
}
