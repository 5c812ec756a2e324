package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hydai/mcplug/mcplugerr"
)

// Metadata is the parsed `.well-known/oauth-authorization-server` document
// (§4.8 step 1).
type Metadata struct {
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	RegistrationEndpoint  string   `json:"registration_endpoint,omitempty"`
	ScopesSupported       []string `json:"scopes_supported,omitempty"`
}

// DiscoverMetadata fetches and parses the OAuth metadata document for
// baseURL. Trailing '/' on baseURL is stripped before concatenation.
func DiscoverMetadata(ctx context.Context, httpClient *http.Client, baseURL string) (Metadata, error) {
	url := strings.TrimRight(baseURL, "/") + "/.well-known/oauth-authorization-server"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Metadata{}, mcplugerr.NewOAuthError(fmt.Sprintf("building metadata request for %s: %v", url, err))
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Metadata{}, mcplugerr.NewOAuthError(fmt.Sprintf("failed to fetch OAuth metadata from %s: %v", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Metadata{}, mcplugerr.NewOAuthError(fmt.Sprintf("OAuth metadata endpoint returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Metadata{}, mcplugerr.NewOAuthError(fmt.Sprintf("failed to read OAuth metadata: %v", err))
	}

	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return Metadata{}, mcplugerr.NewOAuthError(fmt.Sprintf("failed to parse OAuth metadata: %v", err))
	}
	return md, nil
}
