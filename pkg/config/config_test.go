package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	want := Default()
	if cfg.Daemon.MaxEntries != want.Daemon.MaxEntries {
		t.Fatalf("MaxEntries = %d, want %d", cfg.Daemon.MaxEntries, want.Daemon.MaxEntries)
	}
}

func TestLoadFrom_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[daemon]
max_entries = 50
max_entry_size = 1024
min_entry_size = 2
max_age_days = 7

[clipboard]
ignore_mime_patterns = ["x-special/secret"]
ignore_app_patterns = ["^keepass"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Daemon.MaxEntries != 50 {
		t.Fatalf("MaxEntries = %d, want 50", cfg.Daemon.MaxEntries)
	}
	if cfg.Daemon.MaxAgeDays != 7 {
		t.Fatalf("MaxAgeDays = %d, want 7", cfg.Daemon.MaxAgeDays)
	}
	if len(cfg.Clipboard.IgnoreMimePatterns) != 1 || cfg.Clipboard.IgnoreMimePatterns[0] != "x-special/secret" {
		t.Fatalf("IgnoreMimePatterns = %v", cfg.Clipboard.IgnoreMimePatterns)
	}
}

func TestLoadFrom_RejectsMinExceedingMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[daemon]
max_entry_size = 10
min_entry_size = 20
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected validation error when min_entry_size > max_entry_size")
	}
}

func TestDefault_IncludesPasswordManagerHint(t *testing.T) {
	cfg := Default()
	found := false
	for _, p := range cfg.Clipboard.IgnoreMimePatterns {
		if p == "x-kde-passwordManagerHint" {
			found = true
		}
	}
	if !found {
		t.Fatal("default ignore_mime_patterns should include x-kde-passwordManagerHint")
	}
}
