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
	"log/slog"
	"sync"
	"sync/atomic"
)

// The normal pattern is explicit: construct a Manager, pass it down.
// Entry points that predate dependency injection call DefaultOrInit
// instead, which lazily builds one shared manager.
var (
	defaultManager atomic.Pointer[Manager]
	defaultInitMu  sync.Mutex
)

// SetDefault installs the process-wide default manager.
// Call this once during startup when a manager is constructed explicitly.
func SetDefault(m *Manager) {
	defaultManager.Store(m)
}

// Default returns the process-wide default manager, or nil if none has
// been installed yet.
func Default() *Manager {
	return defaultManager.Load()
}

// DefaultOrInit returns the default manager, constructing and connecting
// one from the standard config path on first use. Initialization is
// double-checked so concurrent callers never build two managers; the
// manager is published only after Connect succeeds, so a failed attempt
// can be retried.
func DefaultOrInit(ctx context.Context, logger *slog.Logger) (*Manager, error) {
	if m := defaultManager.Load(); m != nil {
		return m, nil
	}

	defaultInitMu.Lock()
	defer defaultInitMu.Unlock()

	// Another caller may have finished while we waited for the lock.
	if m := defaultManager.Load(); m != nil {
		return m, nil
	}

	m := NewManager(ManagerConfig{Logger: logger})
	if err := m.Connect(ctx); err != nil {
		return nil, err
	}

	defaultManager.Store(m)
	return m, nil
}
