package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func dialLoopback(port int) (net.Conn, error) {
	return net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
}

func TestGeneratePKCEVerifierLength(t *testing.T) {
	p := GeneratePKCE()
	assert.Len(t, p.Verifier, 43)
}

func TestGeneratePKCEChallengeMatchesVerifier(t *testing.T) {
	p := GeneratePKCE()
	assert.NotEmpty(t, p.Challenge)
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(p.Verifier), p.Challenge)
}

func TestGeneratePKCEUniquePerCall(t *testing.T) {
	a := GeneratePKCE()
	b := GeneratePKCE()
	assert.NotEqual(t, a.Verifier, b.Verifier)
	assert.NotEqual(t, a.Challenge, b.Challenge)
}

func TestTokenDataIsExpired(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	assert.False(t, TokenData{}.IsExpired(), "no expiry means never expired")
	assert.False(t, TokenData{ExpiresAt: &future}.IsExpired())
	assert.True(t, TokenData{ExpiresAt: &past}.IsExpired())
}

func TestTokenCacheSaveAndLoadRoundtrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	cache := &TokenCache{Fs: fs, HomeDir: "/home/tester"}

	token := TokenData{AccessToken: "access123", RefreshToken: "refresh456", TokenType: "Bearer"}
	require.NoError(t, cache.Save("github", token))

	loaded, ok := cache.Load("github")
	require.True(t, ok)
	assert.Equal(t, "access123", loaded.AccessToken)
	assert.Equal(t, "refresh456", loaded.RefreshToken)
}

func TestTokenCachePathStructure(t *testing.T) {
	cache := &TokenCache{Fs: afero.NewMemMapFs(), HomeDir: "/home/tester"}
	path := cache.Path("github")
	assert.Contains(t, path, ".mcplug")
	assert.Contains(t, path, "github")
	assert.Contains(t, path, "tokens.json")
}

func TestTokenCacheLoadMissingReturnsFalse(t *testing.T) {
	cache := &TokenCache{Fs: afero.NewMemMapFs(), HomeDir: "/home/tester"}
	_, ok := cache.Load("nonexistent")
	assert.False(t, ok)
}

func TestParseCodeFromRequestLine(t *testing.T) {
	code, ok := parseCodeFromRequestLine("GET /callback?code=abc123&state=xyz HTTP/1.1\r\n")
	require.True(t, ok)
	assert.Equal(t, "abc123", code)
}

func TestParseCodeFromRequestLineMissingCode(t *testing.T) {
	_, ok := parseCodeFromRequestLine("GET /callback?state=xyz HTTP/1.1\r\n")
	assert.False(t, ok)
}

func TestParseCodeFromRequestLineURLEncoded(t *testing.T) {
	code, ok := parseCodeFromRequestLine("GET /callback?code=abc%20123 HTTP/1.1\r\n")
	require.True(t, ok)
	assert.Equal(t, "abc 123", code)
}

func TestParseCodeFromRequestLineErrorParamWithoutCode(t *testing.T) {
	_, ok := parseCodeFromRequestLine("GET /callback?error=access_denied&state=xyz HTTP/1.1\r\n")
	assert.False(t, ok)
}

func TestParseCodeFromRequestLineEmptyCodeValue(t *testing.T) {
	_, ok := parseCodeFromRequestLine("GET /callback?code=&state=xyz HTTP/1.1\r\n")
	assert.False(t, ok)
}

func TestURLDecode(t *testing.T) {
	assert.Equal(t, "hello world", urlDecode("hello%20world"))
	assert.Equal(t, "a b", urlDecode("a+b"))
	assert.Equal(t, "plain", urlDecode("plain"))
}

func TestPercentEncode(t *testing.T) {
	assert.Equal(t, "abcXYZ", percentEncode("abcXYZ"))
	assert.Equal(t, "hello%20world", percentEncode("hello world"))
	assert.Equal(t, "http%3A%2F%2Flocalhost%3A8080%2Fcallback", percentEncode("http://localhost:8080/callback"))
	assert.Equal(t, "", percentEncode(""))
}

func TestDiscoverMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/.well-known/oauth-authorization-server", r.URL.Path)
		json.NewEncoder(w).Encode(Metadata{
			AuthorizationEndpoint: "https://auth.example.com/authorize",
			TokenEndpoint:         "https://auth.example.com/token",
		})
	}))
	defer srv.Close()

	md, err := DiscoverMetadata(context.Background(), srv.Client(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/authorize", md.AuthorizationEndpoint)
}

func TestDiscoverMetadataNon2xxIsOAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := DiscoverMetadata(context.Background(), srv.Client(), srv.URL)
	assert.Error(t, err)
}

func TestExchangeCodeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		assert.Equal(t, "the-code", r.FormValue("code"))
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok", "token_type": "Bearer", "expires_in": 3600,
		})
	}))
	defer srv.Close()

	token, err := ExchangeCode(context.Background(), srv.Client(), srv.URL, "the-code", "verifier", "http://localhost:1/callback", ClientID)
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)
	require.NotNil(t, token.ExpiresAt)
	assert.True(t, token.ExpiresAt.After(time.Now()))
}

func TestGetValidTokenReturnsAuthRequiredWithoutCache(t *testing.T) {
	e := &Engine{HTTPClient: http.DefaultClient, Cache: &TokenCache{Fs: afero.NewMemMapFs(), HomeDir: "/home/tester"}}
	_, err := e.GetValidToken(context.Background(), "nonexistent-server", "https://example.com")
	assert.Error(t, err)
}

func TestGetValidTokenReturnsCachedUnexpiredToken(t *testing.T) {
	fs := afero.NewMemMapFs()
	cache := &TokenCache{Fs: fs, HomeDir: "/home/tester"}
	future := time.Now().Add(time.Hour)
	require.NoError(t, cache.Save("srv", TokenData{AccessToken: "still-good", ExpiresAt: &future}))

	e := &Engine{HTTPClient: http.DefaultClient, Cache: cache}
	token, err := e.GetValidToken(context.Background(), "srv", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "still-good", token.AccessToken)
}

func TestGetValidTokenRefreshesExpiredToken(t *testing.T) {
	refreshServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "refreshed", "token_type": "Bearer"})
	}))
	defer refreshServer.Close()

	metaServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Metadata{TokenEndpoint: refreshServer.URL, AuthorizationEndpoint: refreshServer.URL})
	}))
	defer metaServer.Close()

	fs := afero.NewMemMapFs()
	cache := &TokenCache{Fs: fs, HomeDir: "/home/tester"}
	past := time.Now().Add(-time.Hour)
	require.NoError(t, cache.Save("srv", TokenData{AccessToken: "stale", RefreshToken: "refresh-tok", ExpiresAt: &past}))

	e := &Engine{HTTPClient: metaServer.Client(), Cache: cache}
	token, err := e.GetValidToken(context.Background(), "srv", metaServer.URL)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", token.AccessToken)
}

func TestLoopbackRedirectURIAndAwait(t *testing.T) {
	lb, err := BindLoopback()
	require.NoError(t, err)
	defer lb.Close()

	assert.Contains(t, lb.RedirectURI(), "/callback")
	assert.Greater(t, lb.Port(), 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		code, err := lb.Await(2 * time.Second)
		assert.NoError(t, err)
		assert.Equal(t, "test-code", code)
	}()

	conn, err := dialLoopback(lb.Port())
	require.NoError(t, err)
	_, err = conn.Write([]byte("GET /callback?code=test-code HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	require.NoError(t, err)
	<-done
	conn.Close()
}

func TestLoopbackAwaitTimesOut(t *testing.T) {
	lb, err := BindLoopback()
	require.NoError(t, err)
	defer lb.Close()

	_, err = lb.Await(50 * time.Millisecond)
	assert.Error(t, err)
}
