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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteToolDef() ToolDefinition {
	return ToolDefinition{
		Name:        "get_quote",
		Description: "Fetch the latest quote for a ticker.",
		InputSchema: []byte(`{
			"type": "object",
			"properties": {
				"ticker": {"type": "string", "description": "Ticker symbol"},
				"period": {"type": "integer", "description": "Lookback in days"},
				"extended": {"type": "boolean"}
			},
			"required": ["ticker"]
		}`),
	}
}

func TestAgentTool_Name(t *testing.T) {
	tool := NewAgentTool("brokerage", quoteToolDef(), nil)
	assert.Equal(t, "brokerage.get_quote", tool.Name())
}

func TestAgentTool_Description_ListsParameters(t *testing.T) {
	tool := NewAgentTool("brokerage", quoteToolDef(), nil)
	desc := tool.Description()

	assert.Contains(t, desc, "Fetch the latest quote")
	assert.Contains(t, desc, "ticker (string, required)")
	assert.Contains(t, desc, "period (integer, optional)")
	assert.Contains(t, desc, "Lookback in days")
}

func TestAgentTool_Schema(t *testing.T) {
	tool := NewAgentTool("brokerage", quoteToolDef(), nil)
	schema := tool.Schema()

	require.NotNil(t, schema.Inputs)
	assert.Equal(t, "object", schema.Inputs.Type)
	assert.Len(t, schema.Inputs.Properties, 3)
	assert.True(t, schema.Inputs.IsRequired("ticker"))
	assert.False(t, schema.Inputs.IsRequired("period"))
}

func TestAgentTool_Schema_Unparseable(t *testing.T) {
	def := ToolDefinition{Name: "broken", InputSchema: []byte(`{{{`)}
	tool := NewAgentTool("brokerage", def, nil)

	schema := tool.Schema()
	require.NotNil(t, schema.Inputs)
	assert.Equal(t, "object", schema.Inputs.Type)
}

func TestAgentTool_Execute_CoercesArguments(t *testing.T) {
	var got map[string]interface{}
	executor := func(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error) {
		got = args
		return &ToolCallResponse{Content: []ContentItem{{Type: "text", Text: "ok"}}}, nil
	}

	tool := NewAgentTool("brokerage", quoteToolDef(), executor)
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"ticker":   "AAPL",
		"period":   "30",
		"extended": "true",
	})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", got["ticker"])
	assert.Equal(t, 30, got["period"])
	assert.Equal(t, true, got["extended"])
}

func TestAgentTool_Execute_RequiredMissing(t *testing.T) {
	called := false
	executor := func(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error) {
		called = true
		return nil, nil
	}

	tool := NewAgentTool("brokerage", quoteToolDef(), executor)
	_, err := tool.Execute(context.Background(), map[string]interface{}{"period": 30})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticker")
	assert.False(t, called, "missing required parameters fail before the call")
}

func TestAgentTool_Execute_NoFabricatedDefaults(t *testing.T) {
	def := ToolDefinition{
		Name: "get_history",
		InputSchema: []byte(`{
			"type": "object",
			"properties": {
				"ticker": {"type": "string"},
				"period": {"type": "integer", "default": 30}
			},
			"required": ["ticker"]
		}`),
	}

	var got map[string]interface{}
	executor := func(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error) {
		got = args
		return &ToolCallResponse{Content: []ContentItem{{Type: "text", Text: "ok"}}}, nil
	}

	tool := NewAgentTool("brokerage", def, executor)
	_, err := tool.Execute(context.Background(), map[string]interface{}{"ticker": "AAPL"})
	require.NoError(t, err)

	_, present := got["period"]
	assert.False(t, present, "absent optional parameters stay absent; the server applies defaults")
}

func TestAgentTool_Execute_SingleTextBecomesResult(t *testing.T) {
	executor := func(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error) {
		return &ToolCallResponse{Content: []ContentItem{{Type: "text", Text: "187.32"}}}, nil
	}

	tool := NewAgentTool("brokerage", quoteToolDef(), executor)
	out, err := tool.Execute(context.Background(), map[string]interface{}{"ticker": "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "187.32", out["result"])
}

func TestAgentTool_Execute_MixedContent(t *testing.T) {
	executor := func(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error) {
		return &ToolCallResponse{Content: []ContentItem{
			{Type: "text", Text: "chart attached"},
			{Type: "image", Data: "aW1n", MimeType: "image/png"},
		}}, nil
	}

	tool := NewAgentTool("brokerage", quoteToolDef(), executor)
	out, err := tool.Execute(context.Background(), map[string]interface{}{"ticker": "AAPL"})
	require.NoError(t, err)

	content, ok := out["content"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, content, 2)
	assert.Equal(t, "image/png", content[1]["mimeType"])
}

func TestAgentTool_Execute_RemoteErrorFlag(t *testing.T) {
	executor := func(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error) {
		return &ToolCallResponse{
			IsError: true,
			Content: []ContentItem{{Type: "text", Text: "market closed"}},
		}, nil
	}

	tool := NewAgentTool("brokerage", quoteToolDef(), executor)
	_, err := tool.Execute(context.Background(), map[string]interface{}{"ticker": "AAPL"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "market closed")
}

func TestAgentTool_SafeExecute_FoldsErrors(t *testing.T) {
	executor := func(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error) {
		return nil, fmt.Errorf("transport lost")
	}

	tool := NewAgentTool("brokerage", quoteToolDef(), executor)
	result := tool.SafeExecute(context.Background(), map[string]interface{}{"ticker": "AAPL"})

	assert.False(t, result.OK)
	assert.Contains(t, result.ErrMessage, "Error executing tool")
	assert.Contains(t, result.ErrMessage, "transport lost")
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name         string
		declaredType string
		in           interface{}
		want         interface{}
	}{
		{"string int to integer", "integer", "42", 42},
		{"float whole to integer", "integer", float64(7), 7},
		{"string to number", "number", "3.14", 3.14},
		{"string to boolean", "boolean", "false", false},
		{"json string to object", "object", `{"a":1}`, map[string]interface{}{"a": float64(1)}},
		{"json string to array", "array", `[1,2]`, []interface{}{float64(1), float64(2)}},
		{"number to string", "string", float64(42), "42"},
		{"bool to string", "string", true, "true"},
		{"unconvertible passes through", "integer", "not a number", "not a number"},
		{"malformed json passes through", "object", "{broken", "{broken"},
		{"already typed", "integer", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceValue(tt.declaredType, tt.in))
		})
	}
}
