// ABOUTME: Engine configuration loading: defaults, XDG config file, .env, environment
// ABOUTME: Placeholder or empty cloud credentials disable all cloud behavior
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds the two cloud credentials that select whether cloud integration
// is active, plus local paths and service knobs. Load order: defaults, JSON
// config file, .env file, then real environment variables, last writer wins.
type Config struct {
	CloudURL     string `json:"cloud_url" env:"LODGEKIT_CLOUD_URL"`
	CloudAnonKey string `json:"cloud_anon_key" env:"LODGEKIT_CLOUD_ANON_KEY"`

	DataDir        string        `json:"data_dir" env:"LODGEKIT_DATA_DIR"`
	ListenAddr     string        `json:"listen_addr" env:"LODGEKIT_LISTEN_ADDR"`
	HealthInterval time.Duration `json:"health_interval" env:"LODGEKIT_HEALTH_INTERVAL"`
}

// Dir returns the XDG-compliant configuration directory.
func Dir() string {
	return filepath.Join(xdg.DataHome, "lodgekit")
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// Load builds the effective configuration. A missing config file or .env file
// is not an error; a malformed config file is.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:        Dir(),
		ListenAddr:     ":8090",
		HealthInterval: 30 * time.Second,
	}

	if f, err := os.Open(Path()); err == nil {
		err = json.NewDecoder(f).Decode(cfg)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	// .env values become environment variables, then env tags apply on top.
	_ = godotenv.Load()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the XDG config path.
func Save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(Path(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CloudEnabled reports whether both cloud credentials are present and not the
// README placeholders.
func (c *Config) CloudEnabled() bool {
	if c.CloudURL == "" || c.CloudAnonKey == "" {
		return false
	}
	return c.CloudURL != "YOUR_CLOUD_URL" && c.CloudAnonKey != "YOUR_ANON_KEY"
}

// DatabasePath returns the SQLite record-store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "lodgekit.db")
}

// OutboxDir returns the badger outbox directory.
func (c *Config) OutboxDir() string {
	return filepath.Join(c.DataDir, "outbox")
}
