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
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a category of tool-connection error.
type ErrorCode string

const (
	// ErrorCodeConfig indicates a configuration error.
	ErrorCodeConfig ErrorCode = "CONFIG"
	// ErrorCodeConnection indicates a server failed to open or handshake.
	ErrorCodeConnection ErrorCode = "CONNECTION"
	// ErrorCodeUnknownTool indicates a tool name not present in the registry.
	ErrorCodeUnknownTool ErrorCode = "UNKNOWN_TOOL"
	// ErrorCodeRemote indicates the remote server returned or raised during a call.
	ErrorCodeRemote ErrorCode = "REMOTE"
	// ErrorCodeState indicates an operation was invalid for the current lifecycle state.
	ErrorCodeState ErrorCode = "STATE"
	// ErrorCodeValidation indicates a validation error.
	ErrorCodeValidation ErrorCode = "VALIDATION"
)

// Error is a categorized tool-connection error with optional resolution hints.
type Error struct {
	// Code is the error category.
	Code ErrorCode
	// Message is the primary error message.
	Message string
	// Detail provides additional context.
	Detail string
	// Suggestions are actionable steps to resolve the error.
	Suggestions []string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}

	if len(e.Suggestions) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(e.Suggestions, "; "))
		sb.WriteString(")")
	}

	return sb.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithDetail adds detail to the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithSuggestions adds suggestions to the error.
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = suggestions
	return e
}

// WithCause adds an underlying cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// ErrUnknownTool creates an error for a tool name absent from the registry.
// Raised synchronously, before any transport I/O is attempted.
func ErrUnknownTool(name string) *Error {
	return NewError(ErrorCodeUnknownTool, fmt.Sprintf("unknown tool %q", name)).
		WithSuggestions(
			"list available tools: finassist tools list",
			"the owning server may have failed to connect; check startup logs",
		)
}

// ErrSessionNotReady creates an error for protocol calls made before the
// handshake completed. This indicates a programming error, not a condition
// callers should retry.
func ErrSessionNotReady(server string) *Error {
	return NewError(ErrorCodeState, fmt.Sprintf("session %q is not initialized", server)).
		WithDetail("ListTools/CallTool are only valid after the initialize handshake")
}

// ErrConnectFailed creates an error for a server that failed to open or handshake.
func ErrConnectFailed(server string, cause error) *Error {
	return NewError(ErrorCodeConnection, fmt.Sprintf("failed to connect to tool server %q", server)).
		WithDetail(cause.Error()).
		WithCause(cause).
		WithSuggestions(
			"verify the command or URL in the server definition",
			"ensure required environment variables are set",
		)
}

// ErrRemoteCall creates an error for a failure reported by the remote server
// during tool execution.
func ErrRemoteCall(server, tool string, cause error) *Error {
	return NewError(ErrorCodeRemote, fmt.Sprintf("tool %q on server %q failed", tool, server)).
		WithDetail(cause.Error()).
		WithCause(cause)
}

// ErrInvalidServerName creates an error for an invalid server name.
func ErrInvalidServerName(name string) *Error {
	return NewError(ErrorCodeValidation, fmt.Sprintf("invalid server name %q", name)).
		WithDetail("names must start with a letter, contain only letters/numbers/hyphens/underscores, and be at most 64 characters")
}

// ErrInvalidConfig creates an error for an invalid server definition.
func ErrInvalidConfig(detail string) *Error {
	return NewError(ErrorCodeConfig, "invalid tool server configuration").
		WithDetail(detail)
}

// ErrManagerClosed is returned when an operation is submitted to a manager
// whose loop has been shut down.
var ErrManagerClosed = NewError(ErrorCodeState, "connection manager is closed")

// TimeoutError is returned when a bridged call exceeds its budget.
// It is deliberately a distinct type from Error so callers can tell
// "tool unavailable" apart from "tool returned an error". The in-flight
// remote operation is not cancelled; only the calling goroutine is released.
type TimeoutError struct {
	// Op names the bridged operation that timed out.
	Op string
	// Budget is the timeout that was exceeded.
	Budget time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Op, e.Budget)
}

// IsTimeout reports whether err is (or wraps) a bridge timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
