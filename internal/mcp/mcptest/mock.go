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

// Package mcptest provides mock tool server sessions for testing code that
// consumes the connection manager without real subprocesses or network.
package mcptest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openfi/finassist/internal/mcp"
)

// MockSession is an in-memory SessionProvider.
// Configure Tools and CallHandler, then hand it to the manager through
// Dialer.
type MockSession struct {
	// Name is the server name reported by ServerName.
	Name string

	// Tools are returned by ListTools.
	Tools []mcp.ToolDefinition

	// ListErr, when set, makes ListTools fail.
	ListErr error

	// CallHandler services CallTool. When nil, every call returns a
	// single text item echoing the tool name.
	CallHandler func(ctx context.Context, req mcp.ToolCallRequest) (*mcp.ToolCallResponse, error)

	// CallDelay is slept before each CallTool, for timeout tests.
	// The sleep respects context cancellation.
	CallDelay time.Duration

	// PingErr, when set, makes Ping fail.
	PingErr error

	mu     sync.Mutex
	closed bool
	listed int
	called []string
}

// ServerName implements SessionProvider.
func (s *MockSession) ServerName() string { return s.Name }

// Status implements SessionProvider.
func (s *MockSession) Status() mcp.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return mcp.SessionClosed
	}
	return mcp.SessionReady
}

// ListTools implements SessionProvider.
func (s *MockSession) ListTools(ctx context.Context) ([]mcp.ToolDefinition, error) {
	s.mu.Lock()
	s.listed++
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, fmt.Errorf("session %s is closed", s.Name)
	}
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return s.Tools, nil
}

// CallTool implements SessionProvider.
func (s *MockSession) CallTool(ctx context.Context, req mcp.ToolCallRequest) (*mcp.ToolCallResponse, error) {
	s.mu.Lock()
	s.called = append(s.called, req.Name)
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, fmt.Errorf("session %s is closed", s.Name)
	}

	if s.CallDelay > 0 {
		select {
		case <-time.After(s.CallDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.CallHandler != nil {
		return s.CallHandler(ctx, req)
	}

	return &mcp.ToolCallResponse{
		Content: []mcp.ContentItem{{Type: "text", Text: "called " + req.Name}},
	}, nil
}

// Ping implements SessionProvider.
func (s *MockSession) Ping(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return fmt.Errorf("session %s is closed", s.Name)
	}
	return s.PingErr
}

// Close implements SessionProvider.
func (s *MockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *MockSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ListCount returns how many times ListTools has been called.
func (s *MockSession) ListCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listed
}

// Calls returns the tool names passed to CallTool, in order.
func (s *MockSession) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.called...)
}

// TextTool builds a minimal tool definition with a flat object schema.
func TextTool(name, description string) mcp.ToolDefinition {
	return mcp.ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: []byte(`{"type":"object"}`),
	}
}

// Dialer returns a SessionDialer that hands out the given sessions by
// server name. Dialing an unknown name fails, which makes accidental
// real connections visible in tests.
func Dialer(sessions map[string]*MockSession) mcp.SessionDialer {
	return func(ctx context.Context, serverName string, def *mcp.ServerDefinition) (mcp.SessionProvider, error) {
		session, ok := sessions[serverName]
		if !ok {
			return nil, fmt.Errorf("no mock session for server %q", serverName)
		}
		session.Name = serverName
		return session, nil
	}
}

// FailingDialer returns a SessionDialer that fails for the named servers
// and defers to next for everything else.
func FailingDialer(next mcp.SessionDialer, failServers ...string) mcp.SessionDialer {
	failing := make(map[string]bool, len(failServers))
	for _, name := range failServers {
		failing[name] = true
	}
	return func(ctx context.Context, serverName string, def *mcp.ServerDefinition) (mcp.SessionProvider, error) {
		if failing[serverName] {
			return nil, fmt.Errorf("dial refused for server %q", serverName)
		}
		return next(ctx, serverName, def)
	}
}
