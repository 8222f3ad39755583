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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfi/finassist/internal/log"
)

// State represents the lifecycle state of the connection manager.
type State string

const (
	// StateUnstarted means Connect has never been called.
	StateUnstarted State = "unstarted"
	// StateConnecting means the connect sequence is in progress.
	StateConnecting State = "connecting"
	// StateReady means the connect sequence has finished (possibly with
	// individual server failures) and operations are accepted.
	StateReady State = "ready"
	// StateShuttingDown means Shutdown has been requested.
	StateShuttingDown State = "shutting_down"
	// StateClosed means the loop has exited and all sessions are closed.
	StateClosed State = "closed"
)

// defaultConnectTimeout bounds the dial and handshake of a single server.
const defaultConnectTimeout = 10 * time.Second

// ManagerConfig configures a connection manager.
type ManagerConfig struct {
	// ConfigPath locates the server configuration file. Ignored when
	// Config is set. Defaults to the standard config path.
	ConfigPath string

	// Config is the server configuration. When nil it is loaded from
	// ConfigPath on the first Connect.
	Config *Config

	// Logger is used for structured logging (optional).
	Logger *slog.Logger

	// Dialer opens sessions. Defaults to dialing real MCP servers.
	Dialer SessionDialer

	// ConnectTimeout bounds each server's dial and handshake.
	ConnectTimeout time.Duration

	// ListTimeout, ExecTimeout, and CallTimeout override the bridged
	// operation budgets. Zero means the default.
	ListTimeout time.Duration
	ExecTimeout time.Duration
	CallTimeout time.Duration
}

// Manager owns one session per configured tool server and aggregates their
// tools behind a single registry. All sessions live on a loop goroutine with
// its own lifetime; callers on request-handling goroutines reach the sessions
// through the bridge, never directly, so a wedged server costs a bounded wait
// instead of a stuck request.
type Manager struct {
	configPath string
	logger     *slog.Logger
	tracer     trace.Tracer
	dialer     SessionDialer

	connectTimeout time.Duration
	listTimeout    time.Duration
	execTimeout    time.Duration
	callTimeout    time.Duration

	// mu protects the lifecycle fields below
	mu    sync.RWMutex
	state State
	cfg   *Config

	// ready is closed when the connect sequence finishes; a fresh channel
	// is made for every loop incarnation so Connect works again after
	// Shutdown.
	ready chan struct{}

	// calls carries bridged operations to the loop
	calls chan *loopCall

	// loopCancel stops the loop; loopDone is closed when it has fully
	// exited and every session is closed
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	// sessions and connectOrder are written by the loop during connect
	// and teardown only; ops read them in between
	sessions     map[string]SessionProvider
	connectOrder []string

	// registry maps tool names to owning servers, rebuilt per listing
	registry *toolRegistry
}

// NewManager creates a connection manager. No I/O happens until Connect.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = log.WithComponent(logger, "mcp")

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = func(ctx context.Context, serverName string, def *ServerDefinition) (SessionProvider, error) {
			return NewSession(ctx, serverName, def)
		}
	}

	m := &Manager{
		configPath:     cfg.ConfigPath,
		cfg:            cfg.Config,
		logger:         logger,
		tracer:         otel.Tracer("finassist.mcp"),
		dialer:         dialer,
		connectTimeout: cfg.ConnectTimeout,
		listTimeout:    cfg.ListTimeout,
		execTimeout:    cfg.ExecTimeout,
		callTimeout:    cfg.CallTimeout,
		state:          StateUnstarted,
		registry:       newToolRegistry(),
	}
	if m.connectTimeout == 0 {
		m.connectTimeout = defaultConnectTimeout
	}
	if m.listTimeout == 0 {
		m.listTimeout = DefaultListTimeout
	}
	if m.execTimeout == 0 {
		m.execTimeout = DefaultExecTimeout
	}
	if m.callTimeout == 0 {
		m.callTimeout = DefaultCallTimeout
	}
	return m
}

// Connect establishes sessions to all enabled servers. It is idempotent:
// concurrent and repeated calls share one connect sequence and all block
// until it finishes. Individual server failures are logged and skipped;
// Connect returns an error only for configuration problems or a cancelled
// context. After Shutdown, calling Connect again starts a fresh sequence.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()

	switch m.state {
	case StateConnecting, StateReady:
		ready := m.ready
		m.mu.Unlock()
		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case StateShuttingDown:
		m.mu.Unlock()
		return ErrManagerClosed
	}

	// Unstarted or closed: start a fresh loop.
	if m.cfg == nil {
		m.cfg = m.loadConfigOrEmpty()
	}

	m.state = StateConnecting
	m.ready = make(chan struct{})
	m.calls = make(chan *loopCall)
	m.loopDone = make(chan struct{})
	m.sessions = make(map[string]SessionProvider)
	m.connectOrder = nil
	m.registry.reset()

	loopCtx, cancel := context.WithCancel(context.Background())
	m.loopCancel = cancel
	ready := m.ready
	m.mu.Unlock()

	go m.run(loopCtx)

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadConfigOrEmpty loads the server configuration, degrading to zero
// servers on any failure. A broken config file must never keep the
// assistant from starting; it just starts toolless.
func (m *Manager) loadConfigOrEmpty() *Config {
	empty := &Config{Servers: make(map[string]*ServerDefinition)}

	path := m.configPath
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			m.logger.Warn("cannot resolve config path; starting with no tool servers", log.Error(err))
			return empty
		}
		path = p
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		m.logger.Warn("invalid tool server config; starting with no tool servers",
			"path", path,
			log.Error(err))
		return empty
	}
	return cfg
}

// run is the manager loop. It connects to every enabled server in order,
// signals readiness, then serves bridged operations until cancelled.
// Teardown waits for in-flight operations and closes sessions in reverse
// connect order.
func (m *Manager) run(ctx context.Context) {
	m.connectAll(ctx)

	m.mu.Lock()
	if m.state == StateConnecting {
		m.state = StateReady
	}
	ready := m.ready
	m.mu.Unlock()
	close(ready)

	var wg sync.WaitGroup

	m.mu.RLock()
	calls := m.calls
	m.mu.RUnlock()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case call := <-calls:
			wg.Add(1)
			go func() {
				defer wg.Done()
				value, err := call.op(ctx)
				call.result <- callResult{value: value, err: err}
			}()
		}
	}

	wg.Wait()

	m.mu.Lock()
	order := m.connectOrder
	sessions := m.sessions
	m.sessions = make(map[string]SessionProvider)
	m.connectOrder = nil
	m.registry.reset()
	m.state = StateClosed
	loopDone := m.loopDone
	m.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if session, ok := sessions[name]; ok {
			if err := session.Close(); err != nil {
				m.logger.Warn("failed to close session",
					log.ServerKey, name,
					log.Error(err))
			}
		}
	}

	close(loopDone)
}

// connectAll dials every enabled server sequentially. A failure is logged
// and skipped so one bad server never blocks the rest.
func (m *Manager) connectAll(ctx context.Context) {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()

	for _, name := range cfg.Enabled() {
		def := cfg.Servers[name]

		dialCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
		session, err := m.dialer(dialCtx, name, def)
		cancel()

		if err != nil {
			m.logger.Warn("tool server failed to connect; its tools are unavailable",
				log.ServerKey, name,
				"transport", string(def.Kind()),
				log.Error(err))
			continue
		}

		m.mu.Lock()
		m.sessions[name] = session
		m.connectOrder = append(m.connectOrder, name)
		m.mu.Unlock()

		m.logger.Info("tool server connected",
			log.ServerKey, name,
			"transport", string(def.Kind()))
	}
}

// Tools lists every tool across all live sessions and rebuilds the name
// registry from the result. A session that fails to list contributes zero
// tools. Name collisions resolve last-wins and are logged.
func (m *Manager) Tools(ctx context.Context) ([]ToolInfo, error) {
	if err := m.Connect(ctx); err != nil {
		return nil, err
	}

	value, err := m.submit(ctx, "tools/list", m.listTimeout, func(opCtx context.Context) (interface{}, error) {
		return m.listAll(opCtx), nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]ToolInfo), nil
}

// listAll queries every session in connect order and rebuilds the registry.
func (m *Manager) listAll(ctx context.Context) []ToolInfo {
	m.mu.RLock()
	order := append([]string(nil), m.connectOrder...)
	sessions := m.sessions
	m.mu.RUnlock()

	m.registry.reset()

	var infos []ToolInfo
	for _, name := range order {
		session := sessions[name]
		defs, err := session.ListTools(ctx)
		if err != nil {
			m.logger.Warn("tool listing failed; server contributes no tools",
				log.ServerKey, name,
				log.Error(err))
			continue
		}

		for _, def := range defs {
			if previous, collided := m.registry.set(def.Name, name); collided {
				m.logger.Warn("tool name collision; later server wins",
					log.ToolKey, def.Name,
					"winner", name,
					"shadowed", previous)
			}
			infos = append(infos, ToolInfo{Server: name, Tool: def})
		}
	}

	return infos
}

// ExecuteTool runs a registered tool by bare name. The owning server is
// resolved through the registry before any transport I/O; an unknown name
// fails immediately. Remote failures are wrapped with the server and tool
// name so callers can attribute them.
func (m *Manager) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResponse, error) {
	if err := m.Connect(ctx); err != nil {
		return nil, err
	}

	server, ok := m.registry.owner(name)
	if !ok {
		return nil, ErrUnknownTool(name)
	}

	invocationID := uuid.New().String()
	logger := log.WithInvocationID(m.logger, invocationID)

	ctx, span := m.tracer.Start(ctx, "mcp.tool.execute",
		trace.WithAttributes(
			attribute.String("mcp.server", server),
			attribute.String("mcp.tool", name),
			attribute.String("mcp.invocation_id", invocationID),
		))
	defer span.End()

	logger.Debug("executing tool",
		log.ServerKey, server,
		log.ToolKey, name,
		"arg_count", len(args))

	start := time.Now()
	value, err := m.submit(ctx, "tools/call "+name, m.execTimeout, func(opCtx context.Context) (interface{}, error) {
		m.mu.RLock()
		session, ok := m.sessions[server]
		m.mu.RUnlock()
		if !ok {
			return nil, ErrUnknownTool(name)
		}

		response, callErr := session.CallTool(opCtx, ToolCallRequest{Name: name, Arguments: args})
		if callErr != nil {
			return nil, ErrRemoteCall(server, name, callErr)
		}
		return response, nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("tool execution failed",
			log.ServerKey, server,
			log.ToolKey, name,
			log.Duration("duration", time.Since(start).Milliseconds()),
			log.Error(err))
		return nil, err
	}

	response := value.(*ToolCallResponse)
	logToolResponse(logger, server, name, response, time.Since(start))
	return response, nil
}

// PingServer checks that one connected server is still responsive.
// Bridged like every other session operation, with the generic budget.
func (m *Manager) PingServer(ctx context.Context, server string) error {
	if err := m.Connect(ctx); err != nil {
		return err
	}

	_, err := m.submit(ctx, "ping "+server, m.callTimeout, func(opCtx context.Context) (interface{}, error) {
		m.mu.RLock()
		session, ok := m.sessions[server]
		m.mu.RUnlock()
		if !ok {
			return nil, ErrSessionNotReady(server)
		}
		return nil, session.Ping(opCtx)
	})
	return err
}

// ToolNames returns the bare names currently in the registry, sorted.
// The registry reflects the most recent listing.
func (m *Manager) ToolNames() []string {
	return m.registry.names()
}

// sortedServerNames returns the map keys in sorted order.
func sortedServerNames(servers map[string]*ServerDefinition) []string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServerStatus describes one configured server for introspection.
type ServerStatus struct {
	// Name is the configured server name
	Name string
	// Transport is the transport kind from the definition
	Transport TransportKind
	// Disabled reports whether the definition is disabled
	Disabled bool
	// Connected reports whether a live session exists
	Connected bool
	// Status is the session status, empty when not connected
	Status SessionStatus
}

// Statuses returns the status of every configured server, sorted by name.
func (m *Manager) Statuses() []ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cfg == nil {
		return nil
	}

	statuses := make([]ServerStatus, 0, len(m.cfg.Servers))
	for _, name := range sortedServerNames(m.cfg.Servers) {
		def := m.cfg.Servers[name]
		status := ServerStatus{
			Name:      name,
			Transport: def.Kind(),
			Disabled:  def.Disabled,
		}
		if session, ok := m.sessions[name]; ok {
			status.Connected = true
			status.Status = session.Status()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// State returns the manager lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Shutdown stops the loop and closes every session, waiting for in-flight
// operations first. Safe to call without a prior Connect and safe to call
// more than once. Connect may be called again afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateUnstarted, StateClosed:
		m.mu.Unlock()
		return nil
	case StateShuttingDown:
		loopDone := m.loopDone
		m.mu.Unlock()
		select {
		case <-loopDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.state = StateShuttingDown
	cancel := m.loopCancel
	loopDone := m.loopDone
	m.mu.Unlock()

	cancel()

	select {
	case <-loopDone:
		m.logger.Info("connection manager shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
