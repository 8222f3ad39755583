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

import "context"

// SessionProvider abstracts a live tool server session.
// Session is the production implementation; tests substitute mocks so the
// manager can be exercised without subprocesses or network.
type SessionProvider interface {
	// ServerName returns the configured name of the server.
	ServerName() string

	// Status returns the session lifecycle status.
	Status() SessionStatus

	// ListTools retrieves the tools the server currently exposes.
	ListTools(ctx context.Context) ([]ToolDefinition, error)

	// CallTool executes a tool on the server.
	CallTool(ctx context.Context, req ToolCallRequest) (*ToolCallResponse, error)

	// Ping checks that the server is still responsive.
	Ping(ctx context.Context) error

	// Close tears down the session and releases its transport.
	Close() error
}

// SessionDialer opens a session for one server definition.
// The manager's connect sequence calls this once per enabled server;
// injecting a dialer is how tests and embedders substitute transports.
type SessionDialer func(ctx context.Context, serverName string, def *ServerDefinition) (SessionProvider, error)

// ManagerProvider abstracts the connection manager for consumers that only
// need the aggregate tool surface.
type ManagerProvider interface {
	// Connect establishes sessions to all enabled servers.
	Connect(ctx context.Context) error

	// Tools lists every tool across all live sessions.
	Tools(ctx context.Context) ([]ToolInfo, error)

	// ExecuteTool runs a registered tool by name.
	ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error)

	// Shutdown closes all sessions and stops the manager.
	Shutdown(ctx context.Context) error
}
