package jsonrpc2

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// NotificationHandler is invoked for every inbound message that has no id.
// The stdio transport uses this to swallow progress notifications that
// interleave with call responses (see spec §4.2).
type NotificationHandler func(method string, params json.RawMessage)

// UnknownIDHandler is invoked when a response arrives whose id does not
// match any outstanding call. The stdio transport logs a warning here
// rather than treating it as fatal, since well-behaved servers should never
// produce one but misbehaving ones occasionally do.
type UnknownIDHandler func(id uint64)

// Client correlates JSON-RPC requests to responses over a single
// long-lived stream (one child process's stdout/stdin pair). Call and
// Notify may be invoked concurrently; Listen must run in its own
// goroutine and drives all correlation.
type Client struct {
	writeMu sync.Mutex
	enc     *json.Encoder

	scanner *bufio.Scanner

	pendingMu sync.Mutex
	pending   map[uint64]chan Response
	closed    bool

	OnNotification NotificationHandler
	OnUnknownID    UnknownIDHandler
}

// NewClient wires a Client to read newline-delimited JSON-RPC messages from
// r and write them to w. The caller must run Listen in a goroutine before
// issuing calls.
func NewClient(r io.Reader, w io.Writer) *Client {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Client{
		enc:     json.NewEncoder(w),
		scanner: scanner,
		pending: make(map[uint64]chan Response),
	}
}

// Listen reads one JSON line at a time until the stream ends or the client
// is closed. Blank lines and lines that fail to parse at the top level are
// skipped (spec §4.2: "Reader discards blank lines and parse-failing lines
// at the *top level* only"). It returns io.EOF when the stream is
// exhausted, which the stdio transport surfaces as "server process exited
// unexpectedly".
func (c *Client) Listen() error {
	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp, err := ParseResponse(line)
		if err != nil {
			// Malformed line outside any awaited response: skip at the top
			// level per spec. A malformed line that was meant to resolve an
			// outstanding call will simply time out/hang and is caught by
			// the caller's context deadline instead.
			continue
		}
		if resp.IsNotification {
			if c.OnNotification != nil {
				c.OnNotification(resp.Method, resp.Params)
			}
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[*resp.ID]
		if ok {
			delete(c.pending, *resp.ID)
		}
		c.pendingMu.Unlock()

		if !ok {
			if c.OnUnknownID != nil {
				c.OnUnknownID(*resp.ID)
			}
			continue
		}
		ch <- resp
	}
	err := c.scanner.Err()
	if err == nil {
		err = io.EOF
	}
	// The stream ended — the child process exited or the connection
	// dropped — with calls still outstanding. Fail them now rather than
	// leaving them to block until the caller's context deadline, per
	// §4.2's "server process exited unexpectedly" transport error.
	c.failPending(err)
	return err
}

// failPending resolves every outstanding call with a synthetic error
// response carrying cause, used both by Listen on stream end and by Close.
func (c *Client) failPending(cause error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- Response{Error: &ErrorObject{Code: CodeConnectionClosed, Message: fmt.Sprintf("connection closed: %v", cause)}}
		delete(c.pending, id)
	}
}

// Call sends method/params as a request and blocks until the matching
// response arrives, ctx is cancelled, or the client is closed. result is
// populated via json.Unmarshal of the response's result field when non-nil.
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	id, req := MakeRequest(method, params)

	ch := make(chan Response, 1)
	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()
		return fmt.Errorf("jsonrpc2: connection closed")
	}
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.writeMu.Lock()
	err := c.enc.Encode(req)
	c.writeMu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("jsonrpc2: write request %q: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return ctx.Err()
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && resp.Result != nil {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("jsonrpc2: decode result of %q: %w", method, err)
			}
		}
		return nil
	}
}

// Notify sends a fire-and-forget notification; no response is awaited.
func (c *Client) Notify(ctx context.Context, method string, params interface{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.enc.Encode(MakeNotification(method, params)); err != nil {
		return fmt.Errorf("jsonrpc2: write notification %q: %w", method, err)
	}
	return nil
}

// Close marks the client closed and fails every pending call. It is
// idempotent.
func (c *Client) Close() error {
	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()
		return nil
	}
	c.closed = true
	c.pendingMu.Unlock()
	c.failPending(fmt.Errorf("client closed"))
	return nil
}
