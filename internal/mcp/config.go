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
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openfi/finassist/internal/config"
)

// ServerNameRegex validates tool server names.
// Names must start with a letter and contain only letters, numbers, hyphens,
// and underscores. Maximum length is 64 characters.
var ServerNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{0,63}$`)

// TransportKind identifies how a server definition is reached.
type TransportKind string

const (
	// TransportStdio runs the server as a subprocess and speaks over its pipes.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP opens a persistent streaming HTTP connection.
	TransportHTTP TransportKind = "http"
)

// Config represents the tool server configuration file.
// Stored at ~/.config/finassist/servers.yaml; JSON-shaped files parse too
// since YAML is a superset of JSON.
type Config struct {
	// Servers is a map of server name to definition.
	Servers map[string]*ServerDefinition `yaml:"servers,omitempty"`
}

// ServerDefinition describes one remote tool provider and how to reach it.
// Exactly one transport is configured: Command (with Args/Env) for a
// subprocess, or URL (with Headers) for streaming HTTP.
// Definitions are immutable after load.
type ServerDefinition struct {
	// Disabled excludes this server entirely: no transport is opened
	// and it contributes zero tools.
	Disabled bool `yaml:"disabled,omitempty"`

	// Command is the executable to run (e.g., "npx", "python").
	Command string `yaml:"command,omitempty"`

	// Args are command-line arguments for the subprocess transport.
	Args []string `yaml:"args,omitempty"`

	// Env are environment variables passed to the subprocess.
	// Values support ${VAR} and $VAR substitution from the host
	// process environment.
	Env map[string]string `yaml:"env,omitempty"`

	// URL is the endpoint for the streaming HTTP transport.
	URL string `yaml:"url,omitempty"`

	// Headers are sent with every request on the HTTP transport.
	// Values support the same substitution as Env.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultConfigPath returns the path to the tool server configuration file.
func DefaultConfigPath() (string, error) {
	return config.ServersPath()
}

// LoadConfig loads the tool server configuration from disk.
// Returns an empty config if the file doesn't exist, so the system
// degrades to "no tools" rather than refusing to start.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Servers: make(map[string]*ServerDefinition)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Servers == nil {
		cfg.Servers = make(map[string]*ServerDefinition)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the entire configuration.
func (c *Config) Validate() error {
	for name, def := range c.Servers {
		if !ServerNameRegex.MatchString(name) {
			return ErrInvalidServerName(name)
		}
		if def == nil {
			return ErrInvalidConfig(fmt.Sprintf("server %q: definition is empty", name))
		}
		if err := def.Validate(); err != nil {
			return fmt.Errorf("server %q: %w", name, err)
		}
	}
	return nil
}

// Enabled returns the names of all non-disabled servers, sorted for a
// deterministic connect order.
func (c *Config) Enabled() []string {
	names := make([]string, 0, len(c.Servers))
	for name, def := range c.Servers {
		if def != nil && !def.Disabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Validate validates a single server definition.
func (d *ServerDefinition) Validate() error {
	hasCommand := d.Command != ""
	hasURL := d.URL != ""

	switch {
	case !hasCommand && !hasURL:
		return ErrInvalidConfig("either command or url is required")
	case hasCommand && hasURL:
		return ErrInvalidConfig("command and url are mutually exclusive")
	}

	if hasURL && (len(d.Args) > 0 || len(d.Env) > 0) {
		return ErrInvalidConfig("args/env are only valid with a command transport")
	}
	if hasCommand && len(d.Headers) > 0 {
		return ErrInvalidConfig("headers are only valid with a url transport")
	}

	for key := range d.Env {
		if !envKeyRegex.MatchString(key) {
			return ErrInvalidConfig(fmt.Sprintf("invalid environment variable key: %s", key))
		}
	}

	return nil
}

// Kind returns the transport kind for this definition.
func (d *ServerDefinition) Kind() TransportKind {
	if d.URL != "" {
		return TransportHTTP
	}
	return TransportStdio
}

var envKeyRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ExpandedEnv returns the subprocess environment in KEY=VALUE form with
// ${VAR}/$VAR values substituted from the host process environment.
// The result is sorted so log output and tests are stable.
func (d *ServerDefinition) ExpandedEnv() []string {
	if len(d.Env) == 0 {
		return nil
	}
	env := make([]string, 0, len(d.Env))
	for key, value := range d.Env {
		env = append(env, key+"="+os.ExpandEnv(value))
	}
	sort.Strings(env)
	return env
}

// ExpandedHeaders returns the HTTP headers with ${VAR}/$VAR values
// substituted from the host process environment.
func (d *ServerDefinition) ExpandedHeaders() map[string]string {
	if len(d.Headers) == 0 {
		return nil
	}
	headers := make(map[string]string, len(d.Headers))
	for key, value := range d.Headers {
		headers[key] = os.ExpandEnv(value)
	}
	return headers
}

// sensitiveKeyPatterns are patterns that indicate a sensitive value.
var sensitiveKeyPatterns = []string{
	"SECRET", "TOKEN", "KEY", "PASSWORD", "CREDENTIAL", "AUTH", "API_KEY",
}

// IsSensitiveKey returns true if the key appears to contain sensitive data.
func IsSensitiveKey(key string) bool {
	upperKey := strings.ToUpper(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(upperKey, pattern) {
			return true
		}
	}
	return false
}

// RedactMap redacts sensitive values from an env or header map for logging.
func RedactMap(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for key, value := range values {
		if IsSensitiveKey(key) {
			result[key] = "***REDACTED***"
		} else {
			result[key] = value
		}
	}
	return result
}
