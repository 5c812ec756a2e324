package oauth

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/hydai/mcplug/mcplugerr"
	"github.com/spf13/afero"
)

// TokenCache persists TokenData per server under
// <home>/.mcplug/<server>/tokens.json (§4.8 step 7, §6). Backed by an
// afero.Fs so discovery/save/load logic is exercised against
// afero.NewMemMapFs() in tests, the way the teacher's codegen tests
// substitute one for generator output.
type TokenCache struct {
	Fs      afero.Fs
	HomeDir string
}

// NewTokenCache builds a TokenCache against the real OS filesystem and
// home directory.
func NewTokenCache() *TokenCache {
	home, _ := os.UserHomeDir()
	return &TokenCache{Fs: afero.NewOsFs(), HomeDir: home}
}

// Path returns the per-server token cache file path.
func (c *TokenCache) Path(serverName string) string {
	return filepath.Join(c.HomeDir, ".mcplug", serverName, "tokens.json")
}

// Load reads and parses the cached TokenData for serverName. A missing or
// unparseable file is reported as ok=false rather than an error, matching
// the original's load_cached_token returning None on any failure.
func (c *TokenCache) Load(serverName string) (TokenData, bool) {
	data, err := afero.ReadFile(c.Fs, c.Path(serverName))
	if err != nil {
		return TokenData{}, false
	}
	var t TokenData
	if err := json.Unmarshal(data, &t); err != nil {
		return TokenData{}, false
	}
	return t, true
}

// Save writes token as pretty-printed JSON to serverName's cache path,
// creating parent directories as needed.
func (c *TokenCache) Save(serverName string, token TokenData) error {
	path := c.Path(serverName)
	if err := c.Fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return mcplugerr.NewIoError(err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return mcplugerr.NewOAuthError("failed to serialize token: " + err.Error())
	}
	if err := afero.WriteFile(c.Fs, path, data, 0o600); err != nil {
		return mcplugerr.NewIoError(err)
	}
	return nil
}
