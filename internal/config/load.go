package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

// Environment overrides. A .env file is loaded by main before these are
// read.
const (
	envClientID     = "LCWATCH_CLIENT_ID"
	envClientSecret = "LCWATCH_CLIENT_SECRET"
	envPollInterval = "LCWATCH_POLL_INTERVAL_MINUTES"
)

// DefaultRegion is assumed for tenants that omit one.
const DefaultRegion = "eu"

// Enrichment strategy names accepted in tenants.yaml.
const (
	EnrichSourceFiles = "source-files"
	EnrichEmbedded    = "embedded"
)

// Credentials is the stored OAuth client id/secret pair.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// LoadCredentials reads credentials.json, applying environment overrides.
func (c *Config) LoadCredentials() (Credentials, error) {
	var creds Credentials
	data, err := os.ReadFile(c.CredentialsPath())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &creds); err != nil {
			return Credentials{}, fmt.Errorf("invalid %s: %w", CredentialsFile, err)
		}
	case os.IsNotExist(err):
		// Environment may still supply everything.
	default:
		return Credentials{}, fmt.Errorf("failed to read %s: %w", CredentialsFile, err)
	}

	creds.ClientID = getEnv(envClientID, creds.ClientID)
	creds.ClientSecret = getEnv(envClientSecret, creds.ClientSecret)

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return Credentials{}, fmt.Errorf("client id/secret not configured (file %s or %s/%s env)",
			c.CredentialsPath(), envClientID, envClientSecret)
	}
	return creds, nil
}

// TenantEntry is one configured tenant descriptor.
type TenantEntry struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Region string `yaml:"region"`
}

// Settings is the engine configuration stored in tenants.yaml.
type Settings struct {
	PollIntervalMinutes int           `yaml:"poll_interval_minutes"`
	Enrichment          string        `yaml:"enrichment"`
	ClientCredentials   bool          `yaml:"client_credentials"`
	Tenants             []TenantEntry `yaml:"tenants"`
}

// PollInterval returns the configured interval clamped to the allowed
// range.
func (s Settings) PollInterval() time.Duration {
	return ClampInterval(time.Duration(s.PollIntervalMinutes) * time.Minute)
}

// LoadSettings reads tenants.yaml and fills in defaults: 15-minute interval
// clamped to [5, 120], eu region, source-files enrichment.
func (c *Config) LoadSettings() (Settings, error) {
	var s Settings
	data, err := os.ReadFile(c.TenantsPath())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("invalid %s: %w", TenantsFile, err)
		}
	case os.IsNotExist(err):
		// Empty settings; still usable for login/accounts.
	default:
		return Settings{}, fmt.Errorf("failed to read %s: %w", TenantsFile, err)
	}

	if v := os.Getenv(envPollInterval); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.PollIntervalMinutes = n
		}
	}
	if s.PollIntervalMinutes == 0 {
		s.PollIntervalMinutes = int(DefaultPollInterval / time.Minute)
	}
	if s.Enrichment == "" {
		s.Enrichment = EnrichSourceFiles
	}
	if s.Enrichment != EnrichSourceFiles && s.Enrichment != EnrichEmbedded {
		return Settings{}, fmt.Errorf("invalid enrichment strategy: %s", s.Enrichment)
	}
	for i := range s.Tenants {
		if s.Tenants[i].ID == "" {
			return Settings{}, fmt.Errorf("tenant %d has no id", i)
		}
		if s.Tenants[i].Region == "" {
			s.Tenants[i].Region = DefaultRegion
		}
		if s.Tenants[i].Name == "" {
			s.Tenants[i].Name = s.Tenants[i].ID
		}
	}
	return s, nil
}

// LoadToken reads the stored token for a tenant, falling back to the shared
// bootstrap token. A missing token is not an error; (nil, nil) is returned.
func (c *Config) LoadToken(tenantID string) (*oauth2.Token, error) {
	paths := []string{c.TokenPath(tenantID)}
	if tenantID != "" {
		paths = append(paths, c.TokenPath(""))
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read token: %w", err)
		}
		var token oauth2.Token
		if err := json.Unmarshal(data, &token); err != nil {
			return nil, fmt.Errorf("invalid token file %s: %w", path, err)
		}
		return &token, nil
	}
	return nil, nil
}

// SaveToken writes a token for a tenant with mode 0600.
func (c *Config) SaveToken(tenantID string, token *oauth2.Token) error {
	path := c.TokenPath(tenantID)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
