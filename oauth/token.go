package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hydai/mcplug/mcplugerr"
)

// TokenData is the on-disk credential cache entry for one server (§3, §6).
type TokenData struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	TokenType    string     `json:"token_type"`
}

// IsExpired is true iff ExpiresAt is present and has passed (testable
// property 7).
func (t TokenData) IsExpired() bool {
	if t.ExpiresAt == nil {
		return false
	}
	return !time.Now().Before(*t.ExpiresAt)
}

// tokenResponse is the raw OAuth token endpoint response shape.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    *int64 `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type"`
}

func (r tokenResponse) toTokenData(now time.Time) TokenData {
	var expiresAt *time.Time
	if r.ExpiresIn != nil {
		t := now.Add(time.Duration(*r.ExpiresIn) * time.Second)
		expiresAt = &t
	}
	return TokenData{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt,
		TokenType:    r.TokenType,
	}
}

// ExchangeCode posts the authorization_code grant to tokenEndpoint (§4.8
// step 6).
func ExchangeCode(ctx context.Context, httpClient *http.Client, tokenEndpoint, code, codeVerifier, redirectURI, clientID string) (TokenData, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {codeVerifier},
		"redirect_uri":  {redirectURI},
		"client_id":     {clientID},
	}
	return postTokenRequest(ctx, httpClient, tokenEndpoint, form, "Token exchange")
}

// RefreshToken posts the refresh_token grant to tokenEndpoint (§4.8
// refresh).
func RefreshToken(ctx context.Context, httpClient *http.Client, tokenEndpoint, refreshToken, clientID string) (TokenData, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
	}
	return postTokenRequest(ctx, httpClient, tokenEndpoint, form, "Token refresh")
}

func postTokenRequest(ctx context.Context, httpClient *http.Client, tokenEndpoint string, form url.Values, label string) (TokenData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenData{}, mcplugerr.NewOAuthError(fmt.Sprintf("%s request failed: %v", label, err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return TokenData{}, mcplugerr.NewOAuthError(fmt.Sprintf("%s request failed: %v", label, err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TokenData{}, mcplugerr.NewOAuthError(fmt.Sprintf("%s failed with status %d: %s", label, resp.StatusCode, string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return TokenData{}, mcplugerr.NewOAuthError(fmt.Sprintf("failed to parse %s response: %v", strings.ToLower(label), err))
	}
	return tr.toTokenData(time.Now()), nil
}
