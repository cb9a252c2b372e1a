// Package config loads toolkit configuration from a TOML file.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the config file looked up inside the data directory.
const DefaultFileName = "config.toml"

// Config holds the settings shared by the CLI, the HTTP server, and the
// inbox watcher.
type Config struct {
	// DataDir is the root directory of the document store.
	DataDir string `toml:"data_dir"`

	// ListenAddr is the HTTP API listen address.
	ListenAddr string `toml:"listen_addr"`

	// WatchDir is the inbox directory scanned for new treaty text files.
	WatchDir string `toml:"watch_dir"`

	LogLevel  string `toml:"log_level"`
	LogPretty bool   `toml:"log_pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:    "treaty_data",
		ListenAddr: ":8490",
		WatchDir:   "",
		LogLevel:   "info",
		LogPretty:  true,
	}
}

// Load reads configuration from path, applying defaults for unset fields. A
// missing file yields the defaults without error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
