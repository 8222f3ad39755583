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
	"time"
)

// Per-operation budgets. Listing is cheap; execution may do real work on the
// remote side.
const (
	// DefaultListTimeout bounds tool listing across all sessions.
	DefaultListTimeout = 10 * time.Second
	// DefaultExecTimeout bounds a single tool execution.
	DefaultExecTimeout = 60 * time.Second
	// DefaultCallTimeout bounds any other bridged operation.
	DefaultCallTimeout = 30 * time.Second
)

// loopCall is one operation submitted to the manager loop.
type loopCall struct {
	// name identifies the operation in timeout errors and logs
	name string

	// op runs on a goroutine owned by the loop; ctx is the loop's
	// lifetime context, not the submitter's
	op func(ctx context.Context) (interface{}, error)

	// result carries the outcome back to the submitter. Buffered so a
	// late result never blocks the loop after the submitter gave up.
	result chan callResult
}

// callResult is the outcome of a bridged operation.
type callResult struct {
	value interface{}
	err   error
}

// submit hands an operation to the manager loop and waits for its result,
// bounded by the given budget. On timeout the caller is released with a
// TimeoutError while the operation itself keeps running on the loop side;
// its eventual result is discarded.
func (m *Manager) submit(ctx context.Context, name string, budget time.Duration, op func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	call := &loopCall{
		name:   name,
		op:     op,
		result: make(chan callResult, 1),
	}

	m.mu.RLock()
	calls := m.calls
	loopDone := m.loopDone
	m.mu.RUnlock()

	if calls == nil {
		return nil, ErrManagerClosed
	}

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case calls <- call:
	case <-loopDone:
		return nil, ErrManagerClosed
	case <-timer.C:
		return nil, &TimeoutError{Op: name, Budget: budget}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-call.result:
		return res.value, res.err
	case <-timer.C:
		return nil, &TimeoutError{Op: name, Budget: budget}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
