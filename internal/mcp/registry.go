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
	"sort"
	"sync"
)

// toolRegistry maps bare tool names to the server that owns them.
// It is rebuilt from scratch on every listing, so a server that vanished
// stops shadowing its old names. When two servers expose the same tool name
// the later registration wins.
type toolRegistry struct {
	mu     sync.RWMutex
	owners map[string]string
}

func newToolRegistry() *toolRegistry {
	return &toolRegistry{owners: make(map[string]string)}
}

// reset discards all registrations.
func (r *toolRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners = make(map[string]string)
}

// set records server as the owner of a tool name.
// Returns the previous owner and true when the name was already taken.
func (r *toolRegistry) set(toolName, server string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous, collided := r.owners[toolName]
	r.owners[toolName] = server
	return previous, collided && previous != server
}

// owner resolves a tool name to its owning server.
func (r *toolRegistry) owner(toolName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	server, ok := r.owners[toolName]
	return server, ok
}

// names returns all registered tool names, sorted.
func (r *toolRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.owners))
	for name := range r.owners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// size returns the number of registered tools.
func (r *toolRegistry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}
