package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"sync"
	"time"

	"github.com/hydai/mcplug/jsonrpc2"
	"github.com/hydai/mcplug/mcplugerr"
)

// httpCloseTimeout bounds the best-effort notifications/cancelled send on
// Close so a hanging server never blocks shutdown indefinitely.
const httpCloseTimeout = 5 * time.Second

// SessionHeader is the header an HTTP MCP server may return on its first
// response and that the client then echoes on every subsequent request
// (§4.3).
const SessionHeader = "Mcp-Session-Id"

// HTTPTransport issues each JSON-RPC call as an independent POST to a fixed
// base URL, decoding a single JSON-RPC envelope from the response body.
// Unlike StdioTransport there is no persistent read loop: HTTP is strictly
// request/response per call (§5).
type HTTPTransport struct {
	serverName string
	url        string
	client     *http.Client
	headers    http.Header

	sessionMu sync.RWMutex
	sessionID string
}

// NewHTTPTransport validates rawURL's scheme and the supplied extra headers
// and constructs a transport for it. http is only allowed when allowHTTP is
// true; https is always allowed.
func NewHTTPTransport(serverName, rawURL string, extraHeaders map[string]string, allowHTTP bool) (*HTTPTransport, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, mcplugerr.NewConnectionFailed(serverName, fmt.Errorf("parse url %q: %w", rawURL, err))
	}
	switch parsed.Scheme {
	case "https":
		// always allowed
	case "http":
		if !allowHTTP {
			return nil, mcplugerr.NewConnectionFailed(serverName, fmt.Errorf("Cleartext HTTP is not allowed for %q", rawURL))
		}
	default:
		return nil, mcplugerr.NewConnectionFailed(serverName, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme))
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	for k, v := range extraHeaders {
		if !validHeaderName(k) {
			return nil, mcplugerr.NewConnectionFailed(serverName, fmt.Errorf("invalid header name %q", k))
		}
		if !validHeaderValue(v) {
			return nil, mcplugerr.NewConnectionFailed(serverName, fmt.Errorf("invalid header value for %q", k))
		}
		headers.Set(k, v)
	}

	return &HTTPTransport{
		serverName: serverName,
		url:        rawURL,
		client:     &http.Client{},
		headers:    headers,
	}, nil
}

func validHeaderName(name string) bool {
	return textproto.TrimString(name) != "" && httpguardValidToken(name)
}

func validHeaderValue(v string) bool {
	return httpguardValidHeaderFieldValue(v)
}

// httpguardValidToken/httpguardValidHeaderFieldValue mirror net/http's
// internal validity checks (unexported there), since §4.3 requires
// rejecting malformed header names/values at construction time rather than
// deferring to whatever net/http silently drops at send time.
func httpguardValidToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= ' ' || r > '~' {
			return false
		}
		switch r {
		case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', '{', '}':
			return false
		}
	}
	return true
}

func httpguardValidHeaderFieldValue(s string) bool {
	for _, r := range s {
		if r == '\r' || r == '\n' || r == 0 {
			return false
		}
	}
	return true
}

func (t *HTTPTransport) do(ctx context.Context, body interface{}, hasID bool) (json.RawMessage, *jsonrpc2.ErrorObject, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, mcplugerr.NewProtocolError(fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, mcplugerr.NewTransportError(err)
	}
	req.Header = t.headers.Clone()
	if sid := t.sessionIDSnapshot(); sid != "" {
		req.Header.Set(SessionHeader, sid)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, nil, mcplugerr.NewTransportError(fmt.Errorf("%s: %w", t.serverName, err))
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get(SessionHeader); sid != "" {
		t.sessionMu.Lock()
		t.sessionID = sid
		t.sessionMu.Unlock()
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, mcplugerr.NewIoError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, mcplugerr.NewConnectionFailed(t.serverName, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody)))
	}

	if !hasID {
		return nil, nil, nil
	}

	parsed, err := jsonrpc2.ParseResponse(respBody)
	if err != nil {
		return nil, nil, mcplugerr.NewProtocolError(err.Error())
	}
	if parsed.Error != nil {
		return nil, parsed.Error, nil
	}
	return parsed.Result, nil, nil
}

func (t *HTTPTransport) sessionIDSnapshot() string {
	t.sessionMu.RLock()
	defer t.sessionMu.RUnlock()
	return t.sessionID
}

func (t *HTTPTransport) Initialize(ctx context.Context) (ServerInfo, error) {
	_, req := jsonrpc2.MakeRequest("initialize", initializeParams{
		ProtocolVersion: ProtocolVersionHTTP,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      clientInfo{Name: ClientName, Version: ClientVersion},
	})
	raw, rpcErr, err := t.do(ctx, req, true)
	if err != nil {
		return ServerInfo{}, err
	}
	if rpcErr != nil {
		return ServerInfo{}, mcplugerr.NewProtocolError(fmt.Sprintf("%s: initialize: %s", t.serverName, rpcErr.Error()))
	}
	var result initializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ServerInfo{}, mcplugerr.NewProtocolError(fmt.Sprintf("%s: initialize result: %v", t.serverName, err))
	}
	return result.toServerInfo(t.serverName), nil
}

func (t *HTTPTransport) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	_, req := jsonrpc2.MakeRequest("tools/list", listToolsParams{})
	raw, rpcErr, err := t.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	if rpcErr != nil {
		return nil, mcplugerr.NewProtocolError(fmt.Sprintf("%s: tools/list: %s", t.serverName, rpcErr.Error()))
	}
	var result listToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcplugerr.NewProtocolError(fmt.Sprintf("%s: tools/list result: %v", t.serverName, err))
	}
	return result.Tools, nil
}

func (t *HTTPTransport) CallTool(ctx context.Context, name string, args map[string]interface{}) (CallResult, error) {
	_, req := jsonrpc2.MakeRequest("tools/call", callToolParams{Name: name, Arguments: args})
	raw, rpcErr, err := t.do(ctx, req, true)
	if err != nil {
		return CallResult{}, err
	}
	if rpcErr != nil {
		return CallResult{}, mcplugerr.NewProtocolError(fmt.Sprintf("%s: %s: %s", t.serverName, name, rpcErr.Error()))
	}
	var result CallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return CallResult{}, mcplugerr.NewProtocolError(fmt.Sprintf("%s: %s result: %v", t.serverName, name, err))
	}
	result.RawResponse = raw
	return result, nil
}

// Close sends a best-effort notifications/cancelled notification; any
// failure is swallowed (§4.3).
func (t *HTTPTransport) Close() error {
	notif := jsonrpc2.MakeNotification("notifications/cancelled", nil)
	ctx, cancel := context.WithTimeout(context.Background(), httpCloseTimeout)
	defer cancel()
	_, _, _ = t.do(ctx, notif, false)
	t.sessionMu.Lock()
	t.sessionID = ""
	t.sessionMu.Unlock()
	return nil
}
