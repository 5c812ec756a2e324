package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/hydai/mcplug/jsonrpc2"
	"github.com/hydai/mcplug/mcplugerr"
)

// StdioTransport speaks newline-delimited JSON-RPC 2.0 over a spawned
// child's stdin/stdout, inheriting its stderr, the way the teacher's
// mcp.Server/stdioReadWriteCloser/stdioTransport trio does, generalized to
// the Transport capability set and the spec's correlation rules (stray
// notifications are swallowed, not fatal).
type StdioTransport struct {
	serverName string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     io.ReadCloser

	client *jsonrpc2.Client

	closeOnce sync.Once
	closeErr  error
}

// NewStdioTransport spawns command with args, env overlaid on the current
// process environment, and an optional working directory. The child's
// stderr is inherited (passthrough).
func NewStdioTransport(ctx context.Context, serverName, command string, args []string, env map[string]string, dir string) (*StdioTransport, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, mcplugerr.NewConnectionFailed(serverName, fmt.Errorf("stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, mcplugerr.NewConnectionFailed(serverName, fmt.Errorf("stdout pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return nil, mcplugerr.NewConnectionFailed(serverName, fmt.Errorf("spawn: %w", err))
	}

	return newStdioTransport(serverName, cmd, stdin, stdout), nil
}

// newStdioTransport wires a Client over an already-open stdin/stdout pair.
// cmd may be nil in tests that substitute io.Pipe for a real subprocess.
func newStdioTransport(serverName string, cmd *exec.Cmd, stdin io.WriteCloser, stdout io.ReadCloser) *StdioTransport {
	t := &StdioTransport{
		serverName: serverName,
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		client:     jsonrpc2.NewClient(stdout, stdin),
	}
	t.client.OnNotification = func(method string, _ json.RawMessage) {
		// Stray notifications (e.g. progress updates) interleaved with
		// responses are expected and intentionally swallowed (§4.2, §5).
		fmt.Fprintf(os.Stderr, "mcplug: debug: %s: notification %q\n", serverName, method)
	}
	t.client.OnUnknownID = func(id uint64) {
		fmt.Fprintf(os.Stderr, "mcplug: warning: %s: response for unknown request id %d\n", serverName, id)
	}

	go func() {
		if err := t.client.Listen(); err != nil && err != io.EOF {
			fmt.Fprintf(os.Stderr, "mcplug: %s: jsonrpc listener: %v\n", serverName, err)
		}
	}()

	return t
}

func (t *StdioTransport) Initialize(ctx context.Context) (ServerInfo, error) {
	params := initializeParams{
		ProtocolVersion: ProtocolVersionStdio,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      clientInfo{Name: ClientName, Version: ClientVersion},
	}
	var result initializeResult
	if err := t.client.Call(ctx, "initialize", params, &result); err != nil {
		return ServerInfo{}, translateCallErr(t.serverName, "initialize", err)
	}
	if err := t.client.Notify(ctx, "notifications/initialized", nil); err != nil {
		return ServerInfo{}, mcplugerr.NewTransportError(fmt.Errorf("%s: notify initialized: %w", t.serverName, err))
	}
	return result.toServerInfo(t.serverName), nil
}

func (t *StdioTransport) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	var result listToolsResult
	if err := t.client.Call(ctx, "tools/list", listToolsParams{}, &result); err != nil {
		return nil, translateCallErr(t.serverName, "tools/list", err)
	}
	return result.Tools, nil
}

func (t *StdioTransport) CallTool(ctx context.Context, name string, args map[string]interface{}) (CallResult, error) {
	var raw json.RawMessage
	params := callToolParams{Name: name, Arguments: args}
	if err := t.client.Call(ctx, "tools/call", params, &raw); err != nil {
		return CallResult{}, translateCallErr(t.serverName, name, err)
	}
	var result CallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return CallResult{}, mcplugerr.NewProtocolError(fmt.Sprintf("%s: tools/call result: %v", t.serverName, err))
	}
	result.RawResponse = raw
	return result, nil
}

// Close kills the child process (best effort) and waits for it to exit. It
// is idempotent and never panics, per §4.2.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		_ = t.client.Close()
		_ = t.stdin.Close()
		if t.cmd != nil && t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
			_, t.closeErr = t.cmd.Process.Wait()
			if t.closeErr != nil && strings.Contains(t.closeErr.Error(), "already") {
				t.closeErr = nil
			}
		}
	})
	return t.closeErr
}

// translateCallErr maps a jsonrpc2.Client.Call failure into the taxonomy:
// a JSON-RPC error object sent by the server becomes ProtocolError; the
// synthetic error Client manufactures when the stream ends mid-call (§4.2
// "server process exited unexpectedly") and everything else (write
// failures) become TransportError.
func translateCallErr(server, method string, err error) error {
	if errObj, ok := err.(*jsonrpc2.ErrorObject); ok {
		if errObj.Code == jsonrpc2.CodeConnectionClosed {
			return mcplugerr.NewTransportError(fmt.Errorf("%s: %s: server process exited unexpectedly: %s", server, method, errObj.Message))
		}
		return mcplugerr.NewProtocolError(fmt.Sprintf("%s: %s: %s", server, method, errObj.Error()))
	}
	return mcplugerr.NewTransportError(fmt.Errorf("%s: %s: %w", server, method, err))
}
