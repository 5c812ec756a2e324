package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/hydai/mcplug/mcplugcfg"
	"github.com/hydai/mcplug/mcplugerr"
	"github.com/hydai/mcplug/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory stand-in for a real stdio/HTTP transport,
// letting Runtime's caching/locking/lifecycle behaviour be exercised
// without spawning subprocesses or making real HTTP calls.
type fakeTransport struct {
	mu         sync.Mutex
	initCount  int
	closeCount int
	callCount  int
	counterVal int
	info       transport.ServerInfo
}

func (f *fakeTransport) Initialize(ctx context.Context) (transport.ServerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCount++
	return f.info, nil
}

func (f *fakeTransport) ListTools(ctx context.Context) ([]transport.ToolDefinition, error) {
	return []transport.ToolDefinition{{Name: "add"}}, nil
}

func (f *fakeTransport) CallTool(ctx context.Context, name string, args map[string]interface{}) (transport.CallResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if name == "counter" {
		f.counterVal++
		return transport.CallResult{Content: []transport.ContentBlock{{Type: transport.ContentText, Text: itoa(f.counterVal)}}}, nil
	}
	return transport.CallResult{Content: []transport.ContentBlock{{Type: transport.ContentText, Text: "7"}}}, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func newTestConfig(servers map[string]mcplugcfg.ServerConfig) mcplugcfg.McplugConfig {
	return mcplugcfg.McplugConfig{Servers: servers}
}

func TestRuntimeLazyConnectAndCache(t *testing.T) {
	fake := &fakeTransport{info: transport.ServerInfo{Name: "mock", Version: "1.0"}}
	cfg := newTestConfig(map[string]mcplugcfg.ServerConfig{
		"mock": {Command: "mock-server"},
	})
	rt := NewWithFactory(cfg, func(ctx context.Context, name string, sc mcplugcfg.ServerConfig) (transport.Transport, error) {
		return fake, nil
	})

	result, err := rt.CallTool(context.Background(), "mock", "add", map[string]interface{}{"a": 3, "b": 4})
	require.NoError(t, err)
	assert.Equal(t, "7", result.Text())

	_, err = rt.CallTool(context.Background(), "mock", "add", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.initCount, "transport must be initialized exactly once across repeated calls")
	assert.Equal(t, 2, fake.callCount)
}

func TestRuntimeServerInfoCachesRealHandshake(t *testing.T) {
	fake := &fakeTransport{info: transport.ServerInfo{Name: "real-name", Version: "9.9"}}
	cfg := newTestConfig(map[string]mcplugcfg.ServerConfig{
		"mock": {Command: "mock-server"},
	})
	rt := NewWithFactory(cfg, func(ctx context.Context, name string, sc mcplugcfg.ServerConfig) (transport.Transport, error) {
		return fake, nil
	})

	info1, err := rt.ServerInfo(context.Background(), "mock")
	require.NoError(t, err)
	info2, err := rt.ServerInfo(context.Background(), "mock")
	require.NoError(t, err)

	assert.Equal(t, "real-name", info1.Name)
	assert.Equal(t, info1, info2, "Runtime caches the real handshake result rather than returning a placeholder on subsequent calls")
}

func TestRuntimeUnknownServerIsServerNotFound(t *testing.T) {
	rt := New(newTestConfig(nil))
	_, err := rt.CallTool(context.Background(), "ghost", "add", nil)
	require.Error(t, err)
	_, ok := mcplugerr.As(err, mcplugerr.ServerNotFound)
	assert.True(t, ok)
}

func TestRuntimeCloseTearsDownAllTransports(t *testing.T) {
	fake := &fakeTransport{}
	cfg := newTestConfig(map[string]mcplugcfg.ServerConfig{
		"mock": {Command: "mock-server"},
	})
	rt := NewWithFactory(cfg, func(ctx context.Context, name string, sc mcplugcfg.ServerConfig) (transport.Transport, error) {
		return fake, nil
	})

	_, err := rt.ListTools(context.Background(), "mock")
	require.NoError(t, err)

	require.NoError(t, rt.Close())
	assert.Equal(t, 1, fake.closeCount)
	assert.Equal(t, []string{"mock"}, rt.ServerNames(), "ServerNames enumerates configured names, unaffected by Close")
}

func TestRuntimeCounterReuseAcrossCalls(t *testing.T) {
	fake := &fakeTransport{}
	cfg := newTestConfig(map[string]mcplugcfg.ServerConfig{
		"mock": {Command: "mock-server"},
	})
	rt := NewWithFactory(cfg, func(ctx context.Context, name string, sc mcplugcfg.ServerConfig) (transport.Transport, error) {
		return fake, nil
	})

	r1, err := rt.CallTool(context.Background(), "mock", "counter", nil)
	require.NoError(t, err)
	r2, err := rt.CallTool(context.Background(), "mock", "counter", nil)
	require.NoError(t, err)

	assert.Equal(t, "1", r1.Text())
	assert.Equal(t, "2", r2.Text())
}

func TestRuntimeEphemeralLifecycleTearsDownAfterEachCall(t *testing.T) {
	calls := 0
	cfg := newTestConfig(map[string]mcplugcfg.ServerConfig{
		"mock": {Command: "mock-server", Lifecycle: "ephemeral"},
	})
	rt := NewWithFactory(cfg, func(ctx context.Context, name string, sc mcplugcfg.ServerConfig) (transport.Transport, error) {
		calls++
		return &fakeTransport{}, nil
	})

	_, err := rt.CallTool(context.Background(), "mock", "add", nil)
	require.NoError(t, err)
	_, err = rt.CallTool(context.Background(), "mock", "add", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "an ephemeral server reconnects fresh for every call")
}

func TestRuntimeKeepAliveEnvOverrideForcesReuse(t *testing.T) {
	t.Setenv(EnvKeepAlive, "mock")
	calls := 0
	cfg := newTestConfig(map[string]mcplugcfg.ServerConfig{
		"mock": {Command: "mock-server", Lifecycle: "ephemeral"},
	})
	rt := NewWithFactory(cfg, func(ctx context.Context, name string, sc mcplugcfg.ServerConfig) (transport.Transport, error) {
		calls++
		return &fakeTransport{}, nil
	})

	_, err := rt.CallTool(context.Background(), "mock", "add", nil)
	require.NoError(t, err)
	_, err = rt.CallTool(context.Background(), "mock", "add", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "the keep-alive env override beats the configured ephemeral tag")
}
