// Package mcplugcfg implements the configuration layering of spec §4.6:
// discovery in precedence order, JSONC comment stripping, earliest-source-
// wins merge, editor-config imports, and environment-variable expansion.
// Grounded in the teacher's preference for afero.Fs-backed testability
// (codegen/write_to_fs_test.go) generalized here to config discovery rather
// than code-generation output.
package mcplugcfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hydai/mcplug/mcplugerr"
	"github.com/spf13/afero"
)

// ServerConfig is one entry in the merged configuration (§3).
type ServerConfig struct {
	Description string            `json:"description,omitempty"`
	BaseURL     string            `json:"baseUrl,omitempty"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Lifecycle   string            `json:"lifecycle,omitempty"`

	// Dir is not part of the on-disk schema; it is always empty for
	// config-sourced servers (§4.2 takes an optional working directory,
	// but the wire schema of §6 does not expose one per server).
	Dir string `json:"-"`
}

// Validate enforces the §3 invariant: exactly one of {BaseURL, Command}.
func (c ServerConfig) Validate(name string) error {
	hasURL := c.BaseURL != ""
	hasCmd := c.Command != ""
	if hasURL == hasCmd {
		return mcplugerr.NewConfigError("", fmt.Sprintf("server %q must have exactly one of baseUrl or command", name))
	}
	return nil
}

// McplugConfig is the merged, immutable view produced by Load (§3).
type McplugConfig struct {
	Servers map[string]ServerConfig
	Imports []string
}

// fileConfig is the on-disk JSON/JSONC shape of §6.
type fileConfig struct {
	McpServers map[string]ServerConfig `json:"mcpServers"`
	Imports    []string                `json:"imports"`
}

// editorConfigFile is the shape of third-party editor MCP config files,
// which share the `mcpServers` top-level key but carry no `imports`.
type editorConfigFile struct {
	McpServers map[string]ServerConfig `json:"mcpServers"`
}

// Environment variable names honoured by Load (§6).
const (
	EnvConfigPath = "MCPLUG_CONFIG"
)

// editorImportPaths maps the editor tags of §4.6 to well-known file
// locations. homeDir is the caller's home directory.
func editorImportPaths(homeDir string) map[string]string {
	paths := map[string]string{
		"cursor":         filepath.Join(homeDir, ".cursor", "mcp.json"),
		"claude-code":    filepath.Join(homeDir, ".claude", ".mcp.json"),
		"vscode":         filepath.Join(homeDir, ".vscode", "mcp.json"),
		"windsurf":       filepath.Join(homeDir, ".windsurf", "mcp.json"),
		"codex":          filepath.Join(homeDir, ".codex", "mcp.json"),
		"opencode":       filepath.Join(homeDir, ".opencode", "mcp.json"),
		"claude-desktop": claudeDesktopConfigPath(homeDir),
	}
	return paths
}

// claudeDesktopConfigPath returns the OS-specific application-support path
// for Claude Desktop's config file.
func claudeDesktopConfigPath(homeDir string) string {
	switch goos() {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(homeDir, ".config", "Claude", "claude_desktop_config.json")
	}
}

func goos() string { return runtime.GOOS }

// Loader discovers and merges configuration from the precedence chain of
// §4.6. fs defaults to the real filesystem; tests substitute
// afero.NewMemMapFs() the way codegen/write_to_fs_test.go substitutes one
// for generator output.
type Loader struct {
	Fs      afero.Fs
	HomeDir string

	// CLIFlagPath is the highest-precedence explicit path (rank 1).
	CLIFlagPath string
}

// NewLoader builds a Loader against the real OS filesystem and home
// directory.
func NewLoader() *Loader {
	home, _ := os.UserHomeDir()
	return &Loader{Fs: afero.NewOsFs(), HomeDir: home}
}

// Load runs the full discovery → strip → parse → merge → import →
// expand pipeline of §4.6.
func (l *Loader) Load() (McplugConfig, error) {
	merged := McplugConfig{Servers: map[string]ServerConfig{}}
	seenImports := map[string]bool{}

	for _, path := range l.discoveryPaths() {
		fc, ok, err := l.readConfigFile(path)
		if err != nil {
			return McplugConfig{}, err
		}
		if !ok {
			continue
		}
		mergeServers(merged.Servers, fc.McpServers)
		for _, tag := range fc.Imports {
			if !seenImports[tag] {
				seenImports[tag] = true
				merged.Imports = append(merged.Imports, tag)
			}
		}
	}

	l.applyEditorImports(&merged)

	if err := expandConfig(&merged); err != nil {
		return McplugConfig{}, err
	}

	// A malformed server entry (neither or both of baseUrl/command) is not
	// rejected here: §3 surfaces that invariant as a configuration error at
	// connect time, not at load time, so one bad entry doesn't fail `config
	// show` or calls to other, valid servers. See ServerConfig.Validate and
	// runtime.newDefaultTransport.
	return merged, nil
}

// discoveryPaths returns the precedence-ordered candidate paths of §4.6
// steps 1-5, each included at most once.
func (l *Loader) discoveryPaths() []string {
	var paths []string
	add := func(p string) {
		if p == "" {
			return
		}
		for _, existing := range paths {
			if existing == p {
				return
			}
		}
		paths = append(paths, p)
	}

	add(l.CLIFlagPath)
	add(os.Getenv(EnvConfigPath))
	add(filepath.Join("config", "mcplug.json"))
	add(filepath.Join(l.HomeDir, ".mcplug", "mcplug.json"))
	add(filepath.Join(l.HomeDir, ".mcplug", "mcplug.jsonc"))
	// Legacy fallback at the analogous path under the project's prior name.
	add(filepath.Join(l.HomeDir, ".smolcode", "mcplug.json"))

	return paths
}

// readConfigFile reads, JSONC-strips, and parses one config file. A missing
// file is not an error; it is simply skipped (ok=false).
func (l *Loader) readConfigFile(path string) (fileConfig, bool, error) {
	data, err := afero.ReadFile(l.Fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileConfig{}, false, nil
		}
		return fileConfig{}, false, mcplugerr.NewConfigError(path, err.Error())
	}

	stripped := StripJSONCComments(string(data))
	var fc fileConfig
	if err := json.Unmarshal([]byte(stripped), &fc); err != nil {
		return fileConfig{}, false, mcplugerr.NewConfigError(path, err.Error())
	}
	return fc, true, nil
}

// mergeServers inserts each (name, ServerConfig) from src into dst only if
// name is not already present, implementing "earliest source wins" (§4.6,
// testable property 6).
func mergeServers(dst, src map[string]ServerConfig) {
	for name, sc := range src {
		if _, exists := dst[name]; !exists {
			dst[name] = sc
		}
	}
}

// applyEditorImports processes merged.Imports in order, merging each
// editor's mcpServers object under the same earliest-source-wins rule.
// Parse errors and missing files are swallowed silently (§4.6, §7).
func (l *Loader) applyEditorImports(merged *McplugConfig) {
	known := editorImportPaths(l.HomeDir)
	for _, tag := range merged.Imports {
		path, ok := known[tag]
		if !ok {
			continue
		}
		data, err := afero.ReadFile(l.Fs, path)
		if err != nil {
			continue
		}
		var ec editorConfigFile
		if err := json.Unmarshal([]byte(StripJSONCComments(string(data))), &ec); err != nil {
			continue
		}
		mergeServers(merged.Servers, ec.McpServers)
	}
}

// expandConfig runs ExpandEnvVars over every string field of every
// ServerConfig in place.
func expandConfig(cfg *McplugConfig) error {
	for name, sc := range cfg.Servers {
		var err error
		if sc.BaseURL, err = ExpandEnvVars(sc.BaseURL); err != nil {
			return wrapExpandErr(name, err)
		}
		if sc.Command, err = ExpandEnvVars(sc.Command); err != nil {
			return wrapExpandErr(name, err)
		}
		for i, a := range sc.Args {
			if sc.Args[i], err = ExpandEnvVars(a); err != nil {
				return wrapExpandErr(name, err)
			}
		}
		for k, v := range sc.Env {
			if sc.Env[k], err = ExpandEnvVars(v); err != nil {
				return wrapExpandErr(name, err)
			}
		}
		for k, v := range sc.Headers {
			if sc.Headers[k], err = ExpandEnvVars(v); err != nil {
				return wrapExpandErr(name, err)
			}
		}
		cfg.Servers[name] = sc
	}
	return nil
}

func wrapExpandErr(serverName string, err error) error {
	return mcplugerr.NewConfigError("", fmt.Sprintf("server %q: %s", serverName, err.Error()))
}
