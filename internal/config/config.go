package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the persisted connection record for the ESXi host. It is read
// at startup and never consulted mid-operation.
type Config struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Insecure bool   `toml:"insecure"`
}

// DefaultPath returns the default location of the connection config file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "esxctl", "config.toml"), nil
}

// Load loads configuration from the default config file and environment
// variables. Environment variables take precedence over the file.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadWithFile(path)
}

// LoadWithFile loads configuration from an optional TOML file and
// environment variables. A missing file is not an error as long as the
// environment provides the required values.
func LoadWithFile(path string) (*Config, error) {
	// Attempt to load a .env file, but don't fail if it doesn't exist.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if v := os.Getenv("ESXCTL_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("ESXCTL_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("ESXCTL_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("ESXCTL_INSECURE"); v != "" {
		cfg.Insecure = parseInsecure(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the connection record to the given path, creating parent
// directories as needed. The file is user-readable only since it carries
// the host password.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if all required fields are set.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("connection url is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// parseInsecure converts a string to a boolean, defaulting to false.
func parseInsecure(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
