// Package config loads wayclipd's TOML configuration, applying documented
// defaults for anything the file omits.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"wayclipd/pkg/errors"
	"wayclipd/pkg/paths"
)

// Config is the top-level configuration document.
type Config struct {
	Daemon    DaemonConfig    `toml:"daemon"`
	Clipboard ClipboardConfig `toml:"clipboard"`
}

// DaemonConfig controls retention and admission into the history store.
type DaemonConfig struct {
	MaxEntries   uint32 `toml:"max_entries"`
	MaxEntrySize uint64 `toml:"max_entry_size"`
	MinEntrySize uint64 `toml:"min_entry_size"`
	MaxAgeDays   uint32 `toml:"max_age_days"`
}

// ClipboardConfig controls which captured selections are ignored outright.
// Both pattern lists are regular expressions (Go's regexp/RE2 syntax).
// Patterns are not implicitly anchored: a pattern matches if it matches
// anywhere in the candidate string. Only IgnoreMimePatterns is applied to
// captures; IgnoreAppPatterns is parsed but not consulted.
type ClipboardConfig struct {
	IgnoreMimePatterns []string `toml:"ignore_mime_patterns"`
	IgnoreAppPatterns  []string `toml:"ignore_app_patterns"`
}

// Default returns the configuration used when no config file is present,
// or to fill in anything a partial file omits.
func Default() Config {
	return Config{
		Daemon: DaemonConfig{
			MaxEntries:   1000,
			MaxEntrySize: 10 * 1024 * 1024,
			MinEntrySize: 1,
			MaxAgeDays:   0,
		},
		Clipboard: ClipboardConfig{
			IgnoreMimePatterns: []string{"x-kde-passwordManagerHint"},
			IgnoreAppPatterns:  nil,
		},
	}
}

// Load reads the config file at the default path, returning defaults
// unchanged if it does not exist.
func Load() (Config, error) {
	return LoadFrom(paths.ConfigPath())
}

// LoadFrom reads and parses the config file at path. A missing file is not
// an error: it yields Default().
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, errors.NewWithError(errors.ExitCodeFileOperation, "failed to read config file", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, errors.NewWithError(errors.ExitCodeConfig, "failed to parse config file", err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Daemon.MinEntrySize > cfg.Daemon.MaxEntrySize {
		return errors.ValidationError("daemon.min_entry_size cannot exceed daemon.max_entry_size")
	}
	return nil
}
