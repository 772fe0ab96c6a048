package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultConfigFile = ".restfire.json"

	// EnvURL overrides the url of the config file.
	EnvURL = "RESTFIRE_URL"
	// EnvAuth overrides the credential of the config file.
	EnvAuth = "RESTFIRE_AUTH"
)

// Config of the restfire command line.
type Config struct {
	URL  string `json:"url"`
	Auth string `json:"auth,omitempty"`

	EventBufferSize int `json:"event_buffer_size,omitempty"`
}

// DefaultPath returns ~/.restfire.json, empty if the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultConfigFile)
}

// Load reads the config file, a missing file gives an empty config
func Load(path string) (*Config, error) {
	if len(path) == 0 {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config file
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides the fields with the non-empty environment variables.
func (c *Config) ApplyEnv(lookup func(key string) (string, bool)) {
	if v, ok := lookup(EnvURL); ok && len(v) > 0 {
		c.URL = v
	}
	if v, ok := lookup(EnvAuth); ok && len(v) > 0 {
		c.Auth = v
	}
}

// ApplyFlags overrides the fields with the non-empty flag values.
func (c *Config) ApplyFlags(url string, auth string) {
	if len(url) > 0 {
		c.URL = url
	}
	if len(auth) > 0 {
		c.Auth = auth
	}
}

// Validate ...
func (c *Config) Validate() error {
	if len(c.URL) == 0 {
		return fmt.Errorf("database url is not set, use --url, %s or the config file", EnvURL)
	}
	if c.EventBufferSize < 0 {
		return fmt.Errorf("event_buffer_size must not be negative")
	}
	return nil
}

// Resolve loads the config file then applies the environment and the flags, in this order.
func Resolve(path string, url string, auth string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.ApplyFlags(url, auth)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
