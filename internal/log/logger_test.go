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

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got %q", cfg.Level)
	}

	if cfg.Format != FormatJSON {
		t.Errorf("expected default format 'json', got %q", cfg.Format)
	}

	if cfg.Output != os.Stderr {
		t.Errorf("expected default output to be os.Stderr")
	}

	if cfg.AddSource {
		t.Errorf("expected default AddSource to be false")
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		envVars   map[string]string
		wantLevel string
		wantFmt   Format
		wantSrc   bool
	}{
		{
			name:      "defaults when no env vars",
			envVars:   map[string]string{},
			wantLevel: "info",
			wantFmt:   FormatJSON,
		},
		{
			name:      "LOG_LEVEL=debug",
			envVars:   map[string]string{"LOG_LEVEL": "debug"},
			wantLevel: "debug",
			wantFmt:   FormatJSON,
		},
		{
			name:      "LOG_LEVEL=WARN (case insensitive)",
			envVars:   map[string]string{"LOG_LEVEL": "WARN"},
			wantLevel: "warn",
			wantFmt:   FormatJSON,
		},
		{
			name:      "FINASSIST_LOG_LEVEL takes precedence",
			envVars:   map[string]string{"FINASSIST_LOG_LEVEL": "error", "LOG_LEVEL": "debug"},
			wantLevel: "error",
			wantFmt:   FormatJSON,
		},
		{
			name:      "FINASSIST_DEBUG enables debug and source",
			envVars:   map[string]string{"FINASSIST_DEBUG": "1", "FINASSIST_LOG_LEVEL": "error"},
			wantLevel: "debug",
			wantFmt:   FormatJSON,
			wantSrc:   true,
		},
		{
			name:      "LOG_FORMAT=text",
			envVars:   map[string]string{"LOG_FORMAT": "text"},
			wantLevel: "info",
			wantFmt:   FormatText,
		},
		{
			name:      "LOG_SOURCE=1",
			envVars:   map[string]string{"LOG_SOURCE": "1"},
			wantLevel: "info",
			wantFmt:   FormatJSON,
			wantSrc:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := FromEnv()

			if cfg.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", cfg.Level, tt.wantLevel)
			}
			if cfg.Format != tt.wantFmt {
				t.Errorf("Format = %q, want %q", cfg.Format, tt.wantFmt)
			}
			if cfg.AddSource != tt.wantSrc {
				t.Errorf("AddSource = %v, want %v", cfg.AddSource, tt.wantSrc)
			}
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{
		Level:  "info",
		Format: FormatJSON,
		Output: &buf,
	})

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want 'test message'", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want 'value'", entry["key"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{
		Level:  "warn",
		Format: FormatJSON,
		Output: &buf,
	})

	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("info log should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("warn log should appear at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	WithComponent(logger, "mcp").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry[ComponentKey] != "mcp" {
		t.Errorf("component = %v, want 'mcp'", entry[ComponentKey])
	}
}

func TestSanitizeAPIKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"long key", "sk-abcdef123456", "...3456"},
		{"short key", "abc", "[REDACTED]"},
		{"empty", "", "[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeAPIKey(tt.input); got != tt.want {
				t.Errorf("SanitizeAPIKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeSecret(t *testing.T) {
	if got := SanitizeSecret("anything"); got != "[REDACTED]" {
		t.Errorf("SanitizeSecret = %q, want '[REDACTED]'", got)
	}
}
