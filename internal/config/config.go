package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for gogdb.
type Config struct {
	StoragePath string        `toml:"storage_path"`
	LogDir      string        `toml:"log_dir"`
	Session     SessionConfig `toml:"session"`
	Updater     UpdaterConfig `toml:"updater"`
}

// SessionConfig holds settings for the upstream HTTP client.
type SessionConfig struct {
	UserAgent      string `toml:"user_agent,omitempty"`
	Retries        int    `toml:"retries"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Locale         string `toml:"locale"`
}

// UpdaterConfig holds settings for the update run.
type UpdaterConfig struct {
	ProductWorkers int    `toml:"product_workers"`
	Country        string `toml:"country"`
	Currency       string `toml:"currency"`
	// Window below which a transient "not for sale" observation between
	// two identical prices is dropped as noise.
	PriceJitterWindowHours int `toml:"price_jitter_window_hours"`
}

// NewConfig creates a new Config with the provided base directory and
// default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		StoragePath: filepath.Join(baseDir, "storage"),
		LogDir:      filepath.Join(baseDir, "log"),
		Session: SessionConfig{
			Retries:        3,
			TimeoutSeconds: 10,
			Locale:         "US_USD_en-US",
		},
		Updater: UpdaterConfig{
			ProductWorkers:         1,
			Country:                "US",
			Currency:               "USD",
			PriceJitterWindowHours: 48,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
