package oauth

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hydai/mcplug/mcplugerr"
)

const successPage = "<!DOCTYPE html><html><body><h1>Authentication successful!</h1>" +
	"<p>You can close this window and return to the terminal.</p></body></html>"

// Loopback owns a single bound TCP listener on 127.0.0.1 across the whole
// login attempt, from bind (§4.8 step 3) through the callback wait (step
// 5). This holds the listener rather than releasing and re-binding the
// same port, eliminating the bind-race Open Question of §9/SPEC_FULL.md §6.
type Loopback struct {
	listener net.Listener
	port     int
}

// BindLoopback binds 127.0.0.1:0 and records the OS-assigned port.
func BindLoopback() (*Loopback, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, mcplugerr.NewOAuthError(fmt.Sprintf("failed to bind loopback listener: %v", err))
	}
	port := l.Addr().(*net.TCPAddr).Port
	return &Loopback{listener: l, port: port}, nil
}

// Port returns the bound port.
func (lb *Loopback) Port() int { return lb.port }

// RedirectURI builds the redirect_uri for this loopback port.
func (lb *Loopback) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", lb.port)
}

// Close releases the bound socket.
func (lb *Loopback) Close() error {
	return lb.listener.Close()
}

// Await accepts exactly one connection, extracts the authorization code
// from the callback request, replies with a fixed success page, and
// returns the code. Bounded by timeout (§4.8 step 5).
func (lb *Loopback) Await(timeout time.Duration) (string, error) {
	type result struct {
		code string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		conn, err := lb.listener.Accept()
		if err != nil {
			ch <- result{err: mcplugerr.NewOAuthError(fmt.Sprintf("accepting OAuth callback: %v", err))}
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		requestLine, err := reader.ReadString('\n')
		if err != nil {
			ch <- result{err: mcplugerr.NewOAuthError(fmt.Sprintf("reading OAuth callback: %v", err))}
			return
		}

		code, ok := parseCodeFromRequestLine(requestLine)
		if !ok {
			ch <- result{err: mcplugerr.NewOAuthError("no authorization code found in callback request")}
			return
		}

		response := fmt.Sprintf(
			"HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
			len(successPage), successPage,
		)
		_, _ = conn.Write([]byte(response))
		ch <- result{code: code}
	}()

	select {
	case r := <-ch:
		return r.code, r.err
	case <-time.After(timeout):
		return "", mcplugerr.NewOAuthError(fmt.Sprintf("timed out waiting for OAuth callback after %ds", int(timeout.Seconds())))
	}
}

// parseCodeFromRequestLine extracts the `code` query parameter from a
// request line like "GET /callback?code=abc123&state=xyz HTTP/1.1". A
// present `error` parameter without a usable `code` reports ok=false.
func parseCodeFromRequestLine(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", false
	}
	path := fields[1]
	idx := strings.Index(path, "?")
	if idx == -1 {
		return "", false
	}
	query := path[idx+1:]

	for _, param := range strings.Split(query, "&") {
		if value, ok := strings.CutPrefix(param, "code="); ok {
			decoded := urlDecode(value)
			if decoded != "" {
				return decoded, true
			}
		}
	}
	return "", false
}

// urlDecode implements the '+' -> space, '%XX' -> byte decoding grammar of
// §4.8 step 5.
func urlDecode(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			if i+2 < len(s) {
				if b, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					out.WriteByte(byte(b))
					i += 2
					continue
				}
			}
			out.WriteByte('%')
		case '+':
			out.WriteByte(' ')
		default:
			out.WriteByte(s[i])
		}
	}
	return out.String()
}
