// Package runtimepath locates the per-user runtime files of the daemon.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// SocketEnv overrides the socket path for both the daemon and its clients.
const SocketEnv = "SNAPTILE_SOCKET"

const socketName = "snaptile.sock"

// Dir returns the directory that holds the IPC socket. $XDG_RUNTIME_DIR wins,
// then the platform runtime dir when it exists. Otherwise a private
// directory under the system temp dir is created.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}
	xdg.Reload()
	if isDir(xdg.RuntimeDir) {
		return xdg.RuntimeDir, nil
	}

	fallback := filepath.Join(os.TempDir(), fmt.Sprintf("snaptile-%d", os.Getuid()))
	if err := os.MkdirAll(fallback, 0o700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir %s: %w", fallback, err)
	}
	return fallback, nil
}

// SocketPath returns the daemon socket, honouring SocketEnv.
func SocketPath() (string, error) {
	if p := os.Getenv(SocketEnv); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, socketName), nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
