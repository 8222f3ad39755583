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
	"fmt"
	"os"
	"reflect"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
)

// ProcessHandle abstracts the OS process backing a stdio transport.
// Used for diagnostics; nil for HTTP transports.
type ProcessHandle interface {
	Kill() error
	Signal(sig os.Signal) error
}

// newTransportClient builds the protocol client for a server definition.
// Stdio definitions spawn the subprocess lazily (on Start); HTTP definitions
// hold the endpoint until the first request.
func newTransportClient(def *ServerDefinition) (*client.Client, error) {
	switch def.Kind() {
	case TransportStdio:
		mcpClient, err := client.NewStdioMCPClient(def.Command, def.ExpandedEnv(), def.Args...)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdio client: %w", err)
		}
		return mcpClient, nil

	case TransportHTTP:
		var opts []transport.StreamableHTTPCOption
		if headers := def.ExpandedHeaders(); len(headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(headers))
		}
		mcpClient, err := client.NewStreamableHttpClient(def.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create http client: %w", err)
		}
		return mcpClient, nil

	default:
		return nil, ErrInvalidConfig(fmt.Sprintf("unsupported transport kind %q", def.Kind()))
	}
}

// extractProcess attempts to extract the underlying OS process from the
// client's transport. Uses reflection to access the stdio transport's Cmd
// field. Returns nil if extraction fails (non-fatal; the process just won't
// appear in diagnostics).
func extractProcess(mcpClient *client.Client) ProcessHandle {
	if mcpClient == nil {
		return nil
	}

	tr := mcpClient.GetTransport()
	if tr == nil {
		return nil
	}

	transportVal := reflect.ValueOf(tr)
	if transportVal.Kind() == reflect.Ptr {
		transportVal = transportVal.Elem()
	}
	if transportVal.Kind() != reflect.Struct {
		return nil
	}

	cmdField := transportVal.FieldByName("Cmd")
	if !cmdField.IsValid() || cmdField.Kind() != reflect.Ptr || cmdField.IsNil() {
		return nil
	}

	// The Cmd is *exec.Cmd, which has a Process field
	cmdVal := cmdField.Elem()
	processField := cmdVal.FieldByName("Process")
	if !processField.IsValid() || processField.IsNil() {
		return nil
	}

	if proc, ok := processField.Interface().(*os.Process); ok {
		return proc
	}

	return nil
}

// closerStack unwinds partially-established transport resources in reverse
// acquisition order, so a handshake failure never leaks a subprocess or a
// hanging connection.
type closerStack struct {
	closers []func() error
}

// push records a cleanup step.
func (s *closerStack) push(fn func() error) {
	s.closers = append(s.closers, fn)
}

// unwind runs the recorded steps LIFO and returns the first error.
func (s *closerStack) unwind() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
