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

package tools

// Result is the tagged outcome of a model-facing tool invocation:
// either a value or a short error message, never a raw error.
// One bad tool call must degrade gracefully inside a larger agent turn
// instead of aborting it; callers decide display policy.
type Result struct {
	// OK indicates the invocation produced a value.
	OK bool

	// Value contains the tool output when OK is true.
	Value map[string]interface{}

	// ErrMessage is a short descriptive error string when OK is false.
	ErrMessage string
}

// Ok creates a successful Result.
func Ok(value map[string]interface{}) Result {
	return Result{OK: true, Value: value}
}

// Fail creates a failed Result carrying a short error message.
func Fail(message string) Result {
	return Result{OK: false, ErrMessage: message}
}

// Text extracts the primary text payload from a Result.
// For failures it returns the error message so the model always
// receives something it can reason about.
func (r Result) Text() string {
	if !r.OK {
		return r.ErrMessage
	}
	if text, ok := r.Value["result"].(string); ok {
		return text
	}
	if text, ok := r.Value["text"].(string); ok {
		return text
	}
	return ""
}
