// Package config loads and saves subtrack's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all subtrack configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	API     APIConfig     `toml:"api"`
	Watch   WatchConfig   `toml:"watch"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir       string `toml:"data_dir,omitempty"`
	MockRecurring bool   `toml:"mock_recurring"`
}

// APIConfig holds backend settings. The origin is fixed in production;
// the override exists for development and tests.
type APIConfig struct {
	Origin string `toml:"origin,omitempty"`
}

// WatchConfig holds the notification watch loop settings.
type WatchConfig struct {
	IntervalSec int `toml:"interval_sec"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Watch: WatchConfig{
			IntervalSec: 300,
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "subtrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "subtrack")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DataDir returns the directory for durable storage, honoring the config
// override, then XDG, then the home-dir default.
func DataDir(cfg Config) string {
	if cfg.General.DataDir != "" {
		return cfg.General.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "subtrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "subtrack")
}

// StorePath returns the durable key/value store location.
func StorePath(cfg Config) string {
	return filepath.Join(DataDir(cfg), "subtrack.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Origin returns the backend origin from env var or config, in that order.
// Empty means the client's built-in default.
func Origin(cfg Config) string {
	if origin := os.Getenv("SUBTRACK_API_ORIGIN"); origin != "" {
		return origin
	}
	return cfg.API.Origin
}

// AccessToken returns a bank-link access token passed through the
// environment for one-shot commands. It is never persisted by subtrack.
func AccessToken() string {
	return os.Getenv("SUBTRACK_ACCESS_TOKEN")
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}
