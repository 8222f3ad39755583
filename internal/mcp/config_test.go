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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "servers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Servers)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfigFile(t, `
servers:
  brokerage:
    command: npx
    args: ["-y", "@openfi/brokerage-mcp"]
    env:
      BROKERAGE_API_KEY: ${BROKERAGE_API_KEY}
  market-data:
    url: https://md.example.com/mcp
    headers:
      Authorization: Bearer ${MD_TOKEN}
  legacy:
    disabled: true
    command: python
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 3)

	assert.Equal(t, TransportStdio, cfg.Servers["brokerage"].Kind())
	assert.Equal(t, TransportHTTP, cfg.Servers["market-data"].Kind())
	assert.True(t, cfg.Servers["legacy"].Disabled)
	assert.Equal(t, []string{"brokerage", "market-data"}, cfg.Enabled())
}

func TestLoadConfig_JSONShaped(t *testing.T) {
	// YAML is a superset of JSON, so a JSON-shaped file must parse too.
	path := writeConfigFile(t, `{"servers": {"brokerage": {"command": "npx", "args": ["serve"]}}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Contains(t, cfg.Servers, "brokerage")
	assert.Equal(t, "npx", cfg.Servers["brokerage"].Command)
}

func TestLoadConfig_InvalidServerName(t *testing.T) {
	path := writeConfigFile(t, `
servers:
  "bad name!":
    command: npx
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestServerDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     ServerDefinition
		wantErr bool
	}{
		{
			name: "stdio valid",
			def:  ServerDefinition{Command: "npx", Args: []string{"serve"}},
		},
		{
			name: "http valid",
			def:  ServerDefinition{URL: "https://example.com/mcp"},
		},
		{
			name:    "neither command nor url",
			def:     ServerDefinition{},
			wantErr: true,
		},
		{
			name:    "both command and url",
			def:     ServerDefinition{Command: "npx", URL: "https://example.com"},
			wantErr: true,
		},
		{
			name:    "env on http transport",
			def:     ServerDefinition{URL: "https://example.com", Env: map[string]string{"A": "b"}},
			wantErr: true,
		},
		{
			name:    "headers on stdio transport",
			def:     ServerDefinition{Command: "npx", Headers: map[string]string{"A": "b"}},
			wantErr: true,
		},
		{
			name:    "invalid env key",
			def:     ServerDefinition{Command: "npx", Env: map[string]string{"1BAD": "x"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerDefinition_ExpandedEnv(t *testing.T) {
	t.Setenv("FINASSIST_TEST_TOKEN", "tok-123")

	def := &ServerDefinition{
		Command: "npx",
		Env: map[string]string{
			"API_TOKEN": "${FINASSIST_TEST_TOKEN}",
			"REGION":    "eu-west-1",
		},
	}

	env := def.ExpandedEnv()
	assert.Equal(t, []string{"API_TOKEN=tok-123", "REGION=eu-west-1"}, env)
}

func TestServerDefinition_ExpandedHeaders(t *testing.T) {
	t.Setenv("FINASSIST_TEST_TOKEN", "tok-456")

	def := &ServerDefinition{
		URL: "https://example.com/mcp",
		Headers: map[string]string{
			"Authorization": "Bearer $FINASSIST_TEST_TOKEN",
		},
	}

	headers := def.ExpandedHeaders()
	assert.Equal(t, "Bearer tok-456", headers["Authorization"])
}

func TestServerNameRegex(t *testing.T) {
	valid := []string{"brokerage", "market-data", "a", "Server_1", "x-Y_z9"}
	for _, name := range valid {
		assert.True(t, ServerNameRegex.MatchString(name), name)
	}

	invalid := []string{"", "1server", "-server", "has space", "has.dot", strings.Repeat("a", 65)}
	for _, name := range invalid {
		assert.False(t, ServerNameRegex.MatchString(name), name)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, IsSensitiveKey("API_KEY"))
	assert.True(t, IsSensitiveKey("brokerage_token"))
	assert.True(t, IsSensitiveKey("DB_PASSWORD"))
	assert.False(t, IsSensitiveKey("REGION"))
	assert.False(t, IsSensitiveKey("LOG_LEVEL"))
}

func TestRedactMap(t *testing.T) {
	redacted := RedactMap(map[string]string{
		"API_KEY": "sk-secret",
		"REGION":  "eu-west-1",
	})
	assert.Equal(t, "***REDACTED***", redacted["API_KEY"])
	assert.Equal(t, "eu-west-1", redacted["REGION"])
}
