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

import (
	"context"
	"errors"
	"testing"
)

// fakeTool implements the Tool interface for testing.
type fakeTool struct {
	name        string
	description string
	schema      *Schema
	executeFunc func(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return f.description }

func (f *fakeTool) Schema() *Schema {
	if f.schema != nil {
		return f.schema
	}
	return &Schema{Inputs: &ParameterSchema{Type: "object"}}
}

func (f *fakeTool) Execute(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	if f.executeFunc != nil {
		return f.executeFunc(ctx, inputs)
	}
	return map[string]interface{}{"result": "ok"}, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&fakeTool{name: "quote"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if !r.Has("quote") {
		t.Error("Has(quote) should be true after Register")
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&fakeTool{name: "quote"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	err := r.Register(&fakeTool{name: "quote"})
	if err == nil {
		t.Error("Register() should fail for duplicate name")
	}
}

func TestRegistry_Register_Invalid(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Error("Register(nil) should fail")
	}
	if err := r.Register(&fakeTool{name: ""}); err == nil {
		t.Error("Register() should fail for empty name")
	}
}

func TestRegistry_Get_NotFound(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get("missing"); err == nil {
		t.Error("Get() should fail for unknown tool")
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeTool{name: "quote"})

	if err := r.Unregister("quote"); err != nil {
		t.Errorf("Unregister() error: %v", err)
	}
	if r.Has("quote") {
		t.Error("Has(quote) should be false after Unregister")
	}
	if err := r.Unregister("quote"); err == nil {
		t.Error("Unregister() should fail for unknown tool")
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeTool{
		name: "quote",
		executeFunc: func(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"result": inputs["ticker"]}, nil
		},
	})

	out, err := r.Execute(context.Background(), "quote", map[string]interface{}{"ticker": "AAPL"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out["result"] != "AAPL" {
		t.Errorf("Execute() result = %v, want AAPL", out["result"])
	}
}

func TestRegistry_Execute_RequiredInputMissing(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeTool{
		name: "quote",
		schema: &Schema{
			Inputs: &ParameterSchema{
				Type: "object",
				Properties: map[string]*Property{
					"ticker": {Type: "string"},
				},
				Required: []string{"ticker"},
			},
		},
	})

	_, err := r.Execute(context.Background(), "quote", map[string]interface{}{})
	if err == nil {
		t.Error("Execute() should fail when a required input is missing")
	}
}

func TestRegistry_Execute_ToolError(t *testing.T) {
	r := NewRegistry()
	wantErr := errors.New("upstream unavailable")
	_ = r.Register(&fakeTool{
		name: "quote",
		executeFunc: func(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
			return nil, wantErr
		},
	})

	_, err := r.Execute(context.Background(), "quote", map[string]interface{}{})
	if !errors.Is(err, wantErr) {
		t.Errorf("Execute() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestRegistry_GetToolDescriptors(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeTool{name: "quote", description: "Fetch a stock quote"})
	_ = r.Register(&fakeTool{name: "news", description: "Fetch headlines"})

	descriptors := r.GetToolDescriptors()
	if len(descriptors) != 2 {
		t.Fatalf("GetToolDescriptors() count = %d, want 2", len(descriptors))
	}

	names := map[string]bool{}
	for _, d := range descriptors {
		names[d.Name] = true
		if d.Schema == nil {
			t.Errorf("descriptor %s has nil schema", d.Name)
		}
	}
	if !names["quote"] || !names["news"] {
		t.Errorf("GetToolDescriptors() names = %v, want quote and news", names)
	}
}

func TestParameterSchema_IsRequired(t *testing.T) {
	s := &ParameterSchema{Required: []string{"ticker"}}

	if !s.IsRequired("ticker") {
		t.Error("IsRequired(ticker) should be true")
	}
	if s.IsRequired("period") {
		t.Error("IsRequired(period) should be false")
	}
}

func TestResult_Tagged(t *testing.T) {
	ok := Ok(map[string]interface{}{"result": "42"})
	if !ok.OK || ok.Text() != "42" {
		t.Errorf("Ok() = %+v, want OK with text 42", ok)
	}

	fail := Fail("Error executing tool: boom")
	if fail.OK {
		t.Error("Fail() should not be OK")
	}
	if fail.Text() != "Error executing tool: boom" {
		t.Errorf("Fail().Text() = %q", fail.Text())
	}
}
