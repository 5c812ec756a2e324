// Package oauth implements the OAuth 2.0 Authorization Code + PKCE engine
// of spec §4.8, grounded in the original Rust implementation's
// src/oauth/{discovery,pkce,callback,token,cache,flow}.rs, rebuilt in the
// teacher's idiom: typed mcplugerr results instead of a single
// McplugError enum, golang.org/x/oauth2 for the PKCE primitives, afero for
// the token cache filesystem, and google/uuid for the login attempt's
// state token.
package oauth

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hydai/mcplug/mcplugerr"
)

// ClientID is the fixed OAuth client identifier mcplug registers as.
const ClientID = "mcplug"

// isUnreserved reports whether b is in the RFC 3986 unreserved character
// set used when percent-encoding the redirect_uri for the authorization URL.
func isUnreserved(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') ||
		b == '-' || b == '_' || b == '.' || b == '~'
}

// percentEncode percent-encodes every byte outside the unreserved set.
func percentEncode(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		b := s[i]
		if isUnreserved(b) {
			out.WriteByte(b)
		} else {
			fmt.Fprintf(&out, "%%%02X", b)
		}
	}
	return out.String()
}

// OpenBrowser launches the user's default browser at url, matching the
// teacher's os/exec-based shellouts (cmd/smolcode's subprocess spawning
// idiom) rather than pulling in a dedicated browser-launch dependency the
// retrieval pack never shows.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// Engine drives the full interactive login state machine and the
// cache-then-refresh path for already-authenticated servers.
type Engine struct {
	HTTPClient *http.Client
	Cache      *TokenCache

	// OpenBrowser is overridable for tests; defaults to the real
	// platform-specific launcher.
	OpenBrowser func(url string) error
}

// NewEngine builds an Engine with a default http.Client, the OS token
// cache, and the real browser launcher.
func NewEngine() *Engine {
	return &Engine{
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		Cache:       NewTokenCache(),
		OpenBrowser: OpenBrowser,
	}
}

// Login runs the full browser-based OAuth flow of §4.8 steps 1-7 and
// caches the resulting token.
func (e *Engine) Login(ctx context.Context, serverName, baseURL string, timeout time.Duration) (TokenData, error) {
	metadata, err := DiscoverMetadata(ctx, e.HTTPClient, baseURL)
	if err != nil {
		return TokenData{}, err
	}

	pkce := GeneratePKCE()
	state := uuid.NewString()

	lb, err := BindLoopback()
	if err != nil {
		return TokenData{}, err
	}
	defer lb.Close()

	redirectURI := lb.RedirectURI()
	authURL := fmt.Sprintf(
		"%s?response_type=code&client_id=%s&redirect_uri=%s&code_challenge=%s&code_challenge_method=S256&state=%s",
		metadata.AuthorizationEndpoint, ClientID, percentEncode(redirectURI), pkce.Challenge, state,
	)

	if err := e.OpenBrowser(authURL); err != nil {
		fmt.Printf("mcplug: could not open browser automatically. Please visit:\n%s\n", authURL)
	}

	code, err := lb.Await(timeout)
	if err != nil {
		return TokenData{}, err
	}

	token, err := ExchangeCode(ctx, e.HTTPClient, metadata.TokenEndpoint, code, pkce.Verifier, redirectURI, ClientID)
	if err != nil {
		return TokenData{}, err
	}

	if err := e.Cache.Save(serverName, token); err != nil {
		return TokenData{}, err
	}
	return token, nil
}

// GetValidToken loads the cached token for serverName; if unexpired it is
// returned as-is. If expired and a refresh token exists, a refresh is
// attempted and the result re-cached. Any failure — no cache, no refresh
// token, refresh failure — demotes to AuthRequired, the signal for the
// caller to run Login (§4.8 refresh path).
func (e *Engine) GetValidToken(ctx context.Context, serverName, baseURL string) (TokenData, error) {
	token, ok := e.Cache.Load(serverName)
	if !ok {
		return TokenData{}, mcplugerr.NewAuthRequired(serverName)
	}
	if !token.IsExpired() {
		return token, nil
	}
	if token.RefreshToken == "" {
		return TokenData{}, mcplugerr.NewAuthRequired(serverName)
	}

	metadata, err := DiscoverMetadata(ctx, e.HTTPClient, baseURL)
	if err != nil {
		return TokenData{}, mcplugerr.NewAuthRequired(serverName)
	}

	newToken, err := RefreshToken(ctx, e.HTTPClient, metadata.TokenEndpoint, token.RefreshToken, ClientID)
	if err != nil {
		return TokenData{}, mcplugerr.NewAuthRequired(serverName)
	}

	if err := e.Cache.Save(serverName, newToken); err != nil {
		return TokenData{}, mcplugerr.NewAuthRequired(serverName)
	}
	return newToken, nil
}
