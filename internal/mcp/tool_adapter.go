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
	"sort"
	"strconv"
	"strings"

	"github.com/openfi/finassist/pkg/tools"
)

// ToolExecutor runs a named tool with typed arguments. The Manager's
// ExecuteTool satisfies this; tests substitute closures.
type ToolExecutor func(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error)

// AgentTool adapts one remote tool definition into the tools.Tool interface
// the agent layer consumes. It is built per definition at listing time,
// carries a synthesized description so the model knows the parameters, and
// coerces loosely-typed model output into what the schema declares before
// the call crosses the wire.
type AgentTool struct {
	// serverName is the server that owns this tool
	serverName string

	// toolDef is the remote tool definition
	toolDef ToolDefinition

	// execute routes the call to the owning session
	execute ToolExecutor
}

// NewAgentTool creates an adapter for one remote tool.
func NewAgentTool(serverName string, toolDef ToolDefinition, execute ToolExecutor) *AgentTool {
	return &AgentTool{
		serverName: serverName,
		toolDef:    toolDef,
		execute:    execute,
	}
}

// Name returns the namespaced tool name (e.g., "brokerage.get_quote").
func (t *AgentTool) Name() string {
	return t.serverName + "." + t.toolDef.Name
}

// Description returns the remote description extended with a parameter
// listing, since some model providers only surface the description string.
func (t *AgentTool) Description() string {
	desc := t.toolDef.Description
	schema := t.Schema()
	if schema.Inputs == nil || len(schema.Inputs.Properties) == 0 {
		return desc
	}

	names := make([]string, 0, len(schema.Inputs.Properties))
	for name := range schema.Inputs.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(desc)
	sb.WriteString("\nParameters:")
	for _, name := range names {
		prop := schema.Inputs.Properties[name]
		requirement := "optional"
		if schema.Inputs.IsRequired(name) {
			requirement = "required"
		}
		sb.WriteString(fmt.Sprintf("\n- %s (%s, %s)", name, prop.Type, requirement))
		if prop.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(prop.Description)
		}
	}
	return sb.String()
}

// Schema converts the remote JSON Schema to the agent layer's schema format.
func (t *AgentTool) Schema() *tools.Schema {
	var inputSchema map[string]interface{}
	if len(t.toolDef.InputSchema) > 0 {
		if err := json.Unmarshal(t.toolDef.InputSchema, &inputSchema); err != nil {
			// Unparseable schema degrades to an untyped object
			return &tools.Schema{
				Inputs: &tools.ParameterSchema{
					Type:        "object",
					Description: "Tool input parameters",
				},
			}
		}
	}

	return &tools.Schema{
		Inputs: convertJSONSchemaToParameterSchema(inputSchema),
		Outputs: &tools.ParameterSchema{
			Type:        "object",
			Description: "Tool execution result",
		},
	}
}

// Execute coerces the arguments against the schema and routes the call to
// the owning session. A response flagged as an error by the remote side
// becomes a Go error; SafeExecute converts both into tagged results.
func (t *AgentTool) Execute(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	schema := t.Schema()
	args, err := coerceArguments(schema.Inputs, inputs)
	if err != nil {
		return nil, err
	}

	resp, err := t.execute(ctx, t.toolDef.Name, args)
	if err != nil {
		return nil, err
	}

	if resp.IsError {
		return nil, fmt.Errorf("%s", errorTextFromContent(resp.Content))
	}

	return responseToMap(resp), nil
}

// SafeExecute runs the tool and folds any failure into a tagged result.
// The model-facing path never sees a raw error; one bad invocation degrades
// to a message the model can react to.
func (t *AgentTool) SafeExecute(ctx context.Context, inputs map[string]interface{}) tools.Result {
	value, err := t.Execute(ctx, inputs)
	if err != nil {
		return tools.Fail("Error executing tool: " + err.Error())
	}
	return tools.Ok(value)
}

// errorTextFromContent collects the text items from an error response.
func errorTextFromContent(content []ContentItem) string {
	var errorMsg string
	for _, item := range content {
		if item.Type == "text" && item.Text != "" {
			if errorMsg != "" {
				errorMsg += "; "
			}
			errorMsg += item.Text
		}
	}
	if errorMsg == "" {
		errorMsg = "tool execution failed"
	}
	return errorMsg
}

// responseToMap converts a tool response to the agent layer's output format.
// A single text item becomes {"result": text}; anything richer is preserved
// as a content list.
func responseToMap(resp *ToolCallResponse) map[string]interface{} {
	result := make(map[string]interface{})

	if len(resp.Content) == 1 && resp.Content[0].Type == "text" {
		result["result"] = resp.Content[0].Text
		return result
	}

	contentItems := make([]map[string]interface{}, len(resp.Content))
	for i, content := range resp.Content {
		item := make(map[string]interface{})
		item["type"] = content.Type
		if content.Text != "" {
			item["text"] = content.Text
		}
		if content.Data != "" {
			item["data"] = content.Data
		}
		if content.MimeType != "" {
			item["mimeType"] = content.MimeType
		}
		if content.URI != "" {
			item["uri"] = content.URI
		}
		contentItems[i] = item
	}
	result["content"] = contentItems

	return result
}

// convertJSONSchemaToParameterSchema converts a JSON Schema to the agent
// layer's ParameterSchema. Simplified conversion covering the common cases.
func convertJSONSchemaToParameterSchema(schema map[string]interface{}) *tools.ParameterSchema {
	if schema == nil {
		return &tools.ParameterSchema{
			Type: "object",
		}
	}

	paramSchema := &tools.ParameterSchema{}

	if schemaType, ok := schema["type"].(string); ok {
		paramSchema.Type = schemaType
	} else {
		paramSchema.Type = "object"
	}

	if desc, ok := schema["description"].(string); ok {
		paramSchema.Description = desc
	}

	if paramSchema.Type == "object" {
		if props, ok := schema["properties"].(map[string]interface{}); ok {
			paramSchema.Properties = make(map[string]*tools.Property)
			for propName, propSchema := range props {
				propMap, ok := propSchema.(map[string]interface{})
				if !ok {
					continue
				}
				prop := &tools.Property{}
				if propType, ok := propMap["type"].(string); ok {
					prop.Type = propType
				}
				if propDesc, ok := propMap["description"].(string); ok {
					prop.Description = propDesc
				}
				if propEnum, ok := propMap["enum"].([]interface{}); ok {
					prop.Enum = propEnum
				}
				if propDefault, ok := propMap["default"]; ok {
					prop.Default = propDefault
				}
				if propFormat, ok := propMap["format"].(string); ok {
					prop.Format = propFormat
				}
				paramSchema.Properties[propName] = prop
			}
		}

		if required, ok := schema["required"].([]interface{}); ok {
			for _, req := range required {
				if reqStr, ok := req.(string); ok {
					paramSchema.Required = append(paramSchema.Required, reqStr)
				}
			}
		}
	}

	return paramSchema
}

// coerceArguments aligns loosely-typed inputs with the declared schema.
// Models frequently send numbers and booleans as strings; those convert.
// Values that don't match and don't convert pass through unchanged so the
// remote server makes the final call. Missing required parameters fail here,
// before any transport I/O. Absent optional parameters stay absent; no
// defaults are fabricated.
func coerceArguments(schema *tools.ParameterSchema, inputs map[string]interface{}) (map[string]interface{}, error) {
	if schema == nil {
		return inputs, nil
	}

	for _, name := range schema.Required {
		if _, ok := inputs[name]; !ok {
			return nil, fmt.Errorf("required parameter %q is missing", name)
		}
	}

	if len(schema.Properties) == 0 {
		return inputs, nil
	}

	args := make(map[string]interface{}, len(inputs))
	for name, value := range inputs {
		prop, ok := schema.Properties[name]
		if !ok {
			// Parameters the schema doesn't declare pass through
			args[name] = value
			continue
		}
		args[name] = coerceValue(prop.Type, value)
	}

	return args, nil
}

// coerceValue converts a value toward the declared JSON Schema type.
// Returns the original value when no safe conversion exists.
func coerceValue(declaredType string, value interface{}) interface{} {
	str, isString := value.(string)

	switch declaredType {
	case "integer":
		if isString {
			if n, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
				return n
			}
		}
		if f, ok := value.(float64); ok && f == float64(int(f)) {
			return int(f)
		}
	case "number":
		if isString {
			if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
				return f
			}
		}
	case "boolean":
		if isString {
			if b, err := strconv.ParseBool(strings.TrimSpace(str)); err == nil {
				return b
			}
		}
	case "object", "array":
		if isString {
			trimmed := strings.TrimSpace(str)
			if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
				var decoded interface{}
				if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
					return decoded
				}
			}
		}
	case "string":
		switch v := value.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case bool:
			return strconv.FormatBool(v)
		}
	}

	return value
}

// AgentTools builds an adapter for every tool in a listing, using the
// manager as executor. The returned tools register directly into a
// tools.Registry.
func (m *Manager) AgentTools(ctx context.Context) ([]*AgentTool, error) {
	infos, err := m.Tools(ctx)
	if err != nil {
		return nil, err
	}

	agentTools := make([]*AgentTool, 0, len(infos))
	for _, info := range infos {
		agentTools = append(agentTools, NewAgentTool(info.Server, info.Tool, m.ExecuteTool))
	}
	return agentTools, nil
}
