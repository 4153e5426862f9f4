package paths

import (
	"strings"
	"testing"
)

func TestSocketPathContainsAppDir(t *testing.T) {
	if !strings.Contains(SocketPath(), "wayclipd") {
		t.Fatalf("socket path %q missing app dir", SocketPath())
	}
}

func TestDatabasePathEndsWithHistoryDB(t *testing.T) {
	if !strings.HasSuffix(DatabasePath(), "history.db") {
		t.Fatalf("database path %q should end with history.db", DatabasePath())
	}
}

func TestConfigPathEndsWithConfigToml(t *testing.T) {
	if !strings.HasSuffix(ConfigPath(), "config.toml") {
		t.Fatalf("config path %q should end with config.toml", ConfigPath())
	}
}

func TestSocketDirIsParentOfSocketPath(t *testing.T) {
	if SocketDir()+"/wayclipd.sock" != SocketPath() {
		t.Fatalf("SocketDir() = %q, SocketPath() = %q", SocketDir(), SocketPath())
	}
}
