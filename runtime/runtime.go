// Package runtime implements the connection manager of spec §4.5: it holds
// an immutable McplugConfig alongside a mutable, mutex-guarded map from
// server name to live transport, lazily connecting on first use and
// reusing the cached transport thereafter. Grounded in the teacher's
// agent.go, which holds a similarly mutex-guarded map of live MCP
// connections keyed by server name and lazily dials them on first tool
// invocation.
package runtime

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/hydai/mcplug/mcplugcfg"
	"github.com/hydai/mcplug/mcplugerr"
	"github.com/hydai/mcplug/transport"
)

// Lifecycle tags a ServerConfig's keep-alive preference.
type Lifecycle string

const (
	LifecycleKeepAlive Lifecycle = "keep-alive"
	LifecycleEphemeral Lifecycle = "ephemeral"
)

// Env variable names for the lifecycle override of §4.5.
const (
	EnvKeepAlive        = "MCPLUG_KEEP_ALIVE"
	EnvDisableKeepAlive = "MCPLUG_DISABLE_KEEP_ALIVE"
)

// TransportFactory builds a transport for one ServerConfig. Production code
// uses newDefaultTransport; tests substitute a factory that returns
// in-memory fakes.
type TransportFactory func(ctx context.Context, serverName string, cfg mcplugcfg.ServerConfig) (transport.Transport, error)

// entry caches both the live transport and the handshake result, resolving
// the "server_info caching" Open Question per SPEC_FULL.md §6 in favour of
// caching the real result rather than returning a placeholder on every call
// after the first.
type entry struct {
	transport transport.Transport
	info      transport.ServerInfo
}

// Runtime multiplexes many named MCP servers in one process.
type Runtime struct {
	cfg     mcplugcfg.McplugConfig
	factory TransportFactory

	mu    sync.Mutex
	conns map[string]*entry
}

// New constructs a Runtime over an immutable config using the default
// transport factory (real stdio/HTTP transports).
func New(cfg mcplugcfg.McplugConfig) *Runtime {
	return NewWithFactory(cfg, newDefaultTransport)
}

// NewWithFactory is the test seam: callers supply their own TransportFactory
// to exercise Runtime's caching/locking/lifecycle logic without spawning
// real subprocesses or making real HTTP calls.
func NewWithFactory(cfg mcplugcfg.McplugConfig, factory TransportFactory) *Runtime {
	return &Runtime{cfg: cfg, factory: factory, conns: map[string]*entry{}}
}

// ServerNames enumerates configured server names.
func (r *Runtime) ServerNames() []string {
	names := make([]string, 0, len(r.cfg.Servers))
	for name := range r.cfg.Servers {
		names = append(names, name)
	}
	return names
}

// resolvedLifecycle applies the environment-variable override of §4.5 over
// the configured lifecycle tag. The in-memory (env) view always wins.
func resolvedLifecycle(serverName string, configured string) Lifecycle {
	if envMatchesServer(os.Getenv(EnvKeepAlive), serverName) {
		return LifecycleKeepAlive
	}
	if envMatchesServer(os.Getenv(EnvDisableKeepAlive), serverName) {
		return LifecycleEphemeral
	}
	if configured == string(LifecycleEphemeral) {
		return LifecycleEphemeral
	}
	return LifecycleKeepAlive
}

func envMatchesServer(envValue, serverName string) bool {
	envValue = strings.TrimSpace(envValue)
	return envValue != "" && (envValue == "*" || envValue == serverName)
}

// connect returns a cached entry for server, creating and initializing a
// fresh transport if none exists yet. Per §9's two-phase lock
// pattern, the lock is held only while checking presence / inserting; the
// expensive connect+initialize I/O happens outside it, and a losing
// concurrent caller's transport is discarded in favour of the winner's.
func (r *Runtime) connect(ctx context.Context, serverName string) (*entry, error) {
	r.mu.Lock()
	if e, ok := r.conns[serverName]; ok {
		r.mu.Unlock()
		return e, nil
	}
	r.mu.Unlock()

	cfg, ok := r.cfg.Servers[serverName]
	if !ok {
		return nil, mcplugerr.NewServerNotFound(serverName)
	}

	tr, err := r.factory(ctx, serverName, cfg)
	if err != nil {
		return nil, err
	}
	info, err := tr.Initialize(ctx)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[serverName]; ok {
		// Lost the race to a concurrent connect; keep the winner's
		// transport, discard ours.
		_ = tr.Close()
		return e, nil
	}
	e := &entry{transport: tr, info: info}
	r.conns[serverName] = e
	return e, nil
}

// CallTool lazily connects to server if needed, then forwards the call. An
// ephemeral lifecycle tag tears the transport down immediately afterwards
// so the next call reconnects from scratch.
func (r *Runtime) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (transport.CallResult, error) {
	e, err := r.connect(ctx, server)
	if err != nil {
		return transport.CallResult{}, err
	}
	result, callErr := e.transport.CallTool(ctx, tool, args)

	if resolvedLifecycle(server, string(r.cfg.Servers[server].Lifecycle)) == LifecycleEphemeral {
		r.mu.Lock()
		if cur, ok := r.conns[server]; ok && cur == e {
			delete(r.conns, server)
		}
		r.mu.Unlock()
		_ = e.transport.Close()
	}

	return result, callErr
}

// ListTools lazily connects to server if needed, then lists its tools.
func (r *Runtime) ListTools(ctx context.Context, server string) ([]transport.ToolDefinition, error) {
	e, err := r.connect(ctx, server)
	if err != nil {
		return nil, err
	}
	return e.transport.ListTools(ctx)
}

// ServerInfo returns the cached handshake result for server, connecting
// lazily if necessary.
func (r *Runtime) ServerInfo(ctx context.Context, server string) (transport.ServerInfo, error) {
	e, err := r.connect(ctx, server)
	if err != nil {
		return transport.ServerInfo{}, err
	}
	return e.info, nil
}

// Close tears down every live transport and clears the cache.
func (r *Runtime) Close() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = map[string]*entry{}
	r.mu.Unlock()

	var firstErr error
	for _, e := range conns {
		if err := e.transport.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// newDefaultTransport implements TransportFactory with the real stdio/HTTP
// transports, per §4.5's construction precedence: base URL selects HTTP,
// else command selects stdio, else ConfigError.
func newDefaultTransport(ctx context.Context, serverName string, cfg mcplugcfg.ServerConfig) (transport.Transport, error) {
	// The one-of-{baseUrl,command} invariant (§3) is enforced here, at
	// connect time, rather than at config-load time, so one malformed
	// server entry doesn't fail discovery for every other server.
	if err := cfg.Validate(serverName); err != nil {
		return nil, err
	}
	switch {
	case cfg.BaseURL != "":
		// Config-sourced URLs never opt into cleartext HTTP (§4.3); only
		// the CLI's ad-hoc server spec may do that, ahead of Runtime.
		return transport.NewHTTPTransport(serverName, cfg.BaseURL, cfg.Headers, false)
	case cfg.Command != "":
		return transport.NewStdioTransport(ctx, serverName, cfg.Command, cfg.Args, cfg.Env, cfg.Dir)
	default:
		return nil, mcplugerr.NewConfigError("", fmt.Sprintf("server %q has neither baseUrl nor command", serverName))
	}
}
