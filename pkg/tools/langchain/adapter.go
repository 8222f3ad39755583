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

// Package langchain bridges this project's tools into the langchaingo
// agent framework.
package langchain

import (
	"context"
	"encoding/json"
	"strings"

	lctools "github.com/tmc/langchaingo/tools"

	"github.com/openfi/finassist/pkg/tools"
)

// adapter exposes a tools.Tool through langchaingo's string-in string-out
// tool interface.
type adapter struct {
	tool tools.Tool
}

var _ lctools.Tool = (*adapter)(nil)

// Wrap adapts a tool to the langchaingo tool interface.
// Failures come back as result text rather than Go errors, so one bad
// invocation degrades the agent turn instead of aborting it.
func Wrap(tool tools.Tool) lctools.Tool {
	return &adapter{tool: tool}
}

// WrapAll adapts every tool in the slice.
func WrapAll(ts []tools.Tool) []lctools.Tool {
	wrapped := make([]lctools.Tool, len(ts))
	for i, t := range ts {
		wrapped[i] = Wrap(t)
	}
	return wrapped
}

func (a *adapter) Name() string {
	return a.tool.Name()
}

func (a *adapter) Description() string {
	return a.tool.Description()
}

// Call parses the model's input and executes the tool. Agent frameworks
// pass tool input as a string; a JSON object maps to named parameters,
// anything else becomes a single "input" parameter.
func (a *adapter) Call(ctx context.Context, input string) (string, error) {
	inputs := parseInput(input)

	output, err := a.tool.Execute(ctx, inputs)
	if err != nil {
		return "Error executing tool: " + err.Error(), nil
	}

	if text := tools.Ok(output).Text(); text != "" {
		return text, nil
	}

	// Structured output with no primary text field goes back as JSON.
	encoded, err := json.Marshal(output)
	if err != nil {
		return "Error encoding tool output: " + err.Error(), nil
	}
	return string(encoded), nil
}

// parseInput converts the model's raw input string to named parameters.
func parseInput(input string) map[string]interface{} {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		var inputs map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &inputs); err == nil {
			return inputs
		}
	}
	if trimmed == "" {
		return map[string]interface{}{}
	}
	return map[string]interface{}{"input": trimmed}
}
