// Package config handles XDG configuration directory and file paths.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// AppName is the application directory name.
	AppName = "lcwatch"

	// CredentialsFile holds the OAuth client id and secret.
	CredentialsFile = "credentials.json"

	// TenantsFile holds tenant descriptors and engine settings.
	TenantsFile = "tenants.yaml"

	// TokenFile is the shared bootstrap token filename. Per-tenant tokens
	// live under tokens/<tenant-id>.json.
	TokenFile = "token.json"

	tokenDirName = "tokens"
)

// Poll interval bounds in effect for every deployment.
const (
	DefaultPollInterval = 15 * time.Minute
	MinPollInterval     = 5 * time.Minute
	MaxPollInterval     = 120 * time.Minute
)

// ClampInterval forces an interval into the allowed polling range. A zero
// or negative value becomes the default.
func ClampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollInterval
	}
	if d < MinPollInterval {
		return MinPollInterval
	}
	if d > MaxPollInterval {
		return MaxPollInterval
	}
	return d
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/lcwatch or $HOME/.config/lcwatch.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// CredentialsPath returns the path to the OAuth client credentials file.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Dir, CredentialsFile)
}

// TenantsPath returns the path to the tenants/settings file.
func (c *Config) TenantsPath() string {
	return filepath.Join(c.Dir, TenantsFile)
}

// TokenPath returns the stored token path for a tenant. An empty tenant id
// addresses the shared bootstrap token.
func (c *Config) TokenPath(tenantID string) string {
	if tenantID == "" {
		return filepath.Join(c.Dir, TokenFile)
	}
	return filepath.Join(c.Dir, tokenDirName, tenantID+".json")
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasCredentials checks if the credentials file exists or credentials are
// supplied via environment.
func (c *Config) HasCredentials() bool {
	if os.Getenv(envClientID) != "" && os.Getenv(envClientSecret) != "" {
		return true
	}
	_, err := os.Stat(c.CredentialsPath())
	return err == nil
}

// HasToken checks if a stored token exists for the tenant, falling back to
// the shared bootstrap token.
func (c *Config) HasToken(tenantID string) bool {
	if _, err := os.Stat(c.TokenPath(tenantID)); err == nil {
		return true
	}
	if tenantID == "" {
		return false
	}
	_, err := os.Stat(c.TokenPath(""))
	return err == nil
}

// RemoveTokens deletes every stored token.
func (c *Config) RemoveTokens() error {
	if err := os.Remove(c.TokenPath("")); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.RemoveAll(filepath.Join(c.Dir, tokenDirName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
