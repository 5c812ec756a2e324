package main

import (
	"context"
	"testing"

	"github.com/hydai/mcplug/mcplugcfg"
	"github.com/hydai/mcplug/mcplugerr"
	"github.com/hydai/mcplug/runtime"
	"github.com/hydai/mcplug/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeListTransport is a minimal transport.Transport stand-in whose only
// interesting behaviour is the fixed tool list ListTools returns.
type fakeListTransport struct {
	tools []transport.ToolDefinition
}

func (f *fakeListTransport) Initialize(ctx context.Context) (transport.ServerInfo, error) {
	return transport.ServerInfo{Name: "mock"}, nil
}

func (f *fakeListTransport) ListTools(ctx context.Context) ([]transport.ToolDefinition, error) {
	return f.tools, nil
}

func (f *fakeListTransport) CallTool(ctx context.Context, name string, args map[string]interface{}) (transport.CallResult, error) {
	return transport.CallResult{}, nil
}

func (f *fakeListTransport) Close() error { return nil }

func newTestRuntime(tools []transport.ToolDefinition) *runtime.Runtime {
	cfg := mcplugcfg.McplugConfig{Servers: map[string]mcplugcfg.ServerConfig{
		"mock": {Command: "does-not-run"},
	}}
	return runtime.NewWithFactory(cfg, func(ctx context.Context, name string, sc mcplugcfg.ServerConfig) (transport.Transport, error) {
		return &fakeListTransport{tools: tools}, nil
	})
}

func TestCheckToolExistsSucceedsWhenToolPresent(t *testing.T) {
	rt := newTestRuntime([]transport.ToolDefinition{{Name: "add"}, {Name: "subtract"}})
	err := checkToolExists(context.Background(), rt, "mock", "add")
	require.NoError(t, err)
}

func TestCheckToolExistsReturnsToolNotFoundWithSuggestion(t *testing.T) {
	rt := newTestRuntime([]transport.ToolDefinition{{Name: "add"}, {Name: "subtract"}})
	err := checkToolExists(context.Background(), rt, "mock", "subtrct")
	require.Error(t, err)
	_, ok := mcplugerr.As(err, mcplugerr.ToolNotFound)
	assert.True(t, ok)
}

func TestCheckToolExistsReturnsServerNotFound(t *testing.T) {
	rt := newTestRuntime(nil)
	err := checkToolExists(context.Background(), rt, "unknown-server", "add")
	require.Error(t, err)
	_, ok := mcplugerr.As(err, mcplugerr.ServerNotFound)
	assert.True(t, ok)
}
