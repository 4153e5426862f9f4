// Package paths resolves the XDG-style locations wayclipd reads and writes:
// the IPC socket, the history database, and the config file.
package paths

import (
	"os"
	"path/filepath"
	"strconv"
)

const appDirName = "wayclipd"

// SocketPath returns the IPC socket path: $XDG_RUNTIME_DIR/wayclipd/wayclipd.sock,
// falling back to /tmp/wayclipd-<uid>/wayclipd.sock when XDG_RUNTIME_DIR is unset.
func SocketPath() string {
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		return filepath.Join(runtime, appDirName, "wayclipd.sock")
	}
	return filepath.Join("/tmp", appDirName+"-"+strconv.Itoa(os.Getuid()), "wayclipd.sock")
}

// SocketDir returns the directory containing the IPC socket.
func SocketDir() string {
	return filepath.Dir(SocketPath())
}

// DatabasePath returns the history database path:
// $XDG_DATA_HOME/wayclipd/history.db, falling back to
// ~/.local/share/wayclipd/history.db.
func DatabasePath() string {
	return filepath.Join(dataDir(), appDirName, "history.db")
}

// DatabaseDir returns the directory containing the history database.
func DatabaseDir() string {
	return filepath.Dir(DatabasePath())
}

// ConfigPath returns the config file path: $XDG_CONFIG_HOME/wayclipd/config.toml,
// falling back to ~/.config/wayclipd/config.toml.
func ConfigPath() string {
	return filepath.Join(configDir(), appDirName, "config.toml")
}

// ConfigDir returns the directory containing the config file.
func ConfigDir() string {
	return filepath.Dir(ConfigPath())
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".local", "share")
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".config")
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return "/tmp"
}

// EnsureDir creates dir (and parents) with owner-only permissions if it
// does not already exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}
