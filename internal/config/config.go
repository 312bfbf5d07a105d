// Package config provides configuration loading and management for the
// sync service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "SASWATCH"

const (
	// EnvDBPassword is the environment variable holding the database password
	EnvDBPassword = "SASWATCH_DB_PASSWORD" //nolint:gosec // variable name, not a credential

	// EnvDirectoryToken is the environment variable holding the directory API token
	EnvDirectoryToken = "SASWATCH_DIRECTORY_TOKEN" //nolint:gosec // variable name, not a credential
)

// Option defines the interface for configuration loader options.
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration.
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file.
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure.
type Config struct {
	// Server holds the HTTP server settings
	Server ServerConfig `yaml:"server"`

	// Database holds the PostgreSQL connection settings
	Database DatabaseConfig `yaml:"database"`

	// Directory holds the identity directory client settings
	Directory DirectoryConfig `yaml:"directory"`

	// Sync holds the sync engine defaults
	Sync SyncConfig `yaml:"sync"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	// Address is the listen address, e.g. ":8080"
	Address string `yaml:"address"`
}

// DatabaseConfig defines database connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`

	// Password is the inline password; prefer PasswordFile or the
	// SASWATCH_DB_PASSWORD environment variable
	Password string `yaml:"password,omitempty"`

	// PasswordFile is a path to a file containing the password
	// (e.g. a mounted secret)
	PasswordFile string `yaml:"passwordFile,omitempty"`

	SSLMode  string `yaml:"sslMode,omitempty"`
	MaxConns int32  `yaml:"maxConns,omitempty"`
}

// DirectoryConfig defines the identity directory client settings.
type DirectoryConfig struct {
	// BaseURL is the directory service base URL
	BaseURL string `yaml:"baseUrl"`

	// Token is the inline bearer token; prefer the
	// SASWATCH_DIRECTORY_TOKEN environment variable
	Token string `yaml:"token,omitempty"`

	// Timeout bounds a single page request
	Timeout Duration `yaml:"timeout,omitempty"`
}

// SyncConfig defines sync engine defaults.
type SyncConfig struct {
	// Freshness is how recently a tenant must have synced for a
	// non-forced sync to be skipped
	Freshness Duration `yaml:"freshness,omitempty"`

	// BackfillWindow is the default lookback for cursor-less tenants
	BackfillWindow Duration `yaml:"backfillWindow,omitempty"`

	// MaxPages is the default page cap per invocation
	MaxPages int `yaml:"maxPages,omitempty"`

	// PageSize is the default records per page
	PageSize int `yaml:"pageSize,omitempty"`

	// Deadline bounds attended sync requests at the HTTP boundary
	Deadline Duration `yaml:"deadline,omitempty"`

	// Interval is the background coordinator polling interval
	Interval Duration `yaml:"interval,omitempty"`

	// StatusRetention is how long terminal status entries are kept for
	// polling before being swept
	StatusRetention Duration `yaml:"statusRetention,omitempty"`
}

// Loader loads configurations.
type Loader struct{}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration using the given options.
func (*Loader) Load(opts ...Option) (*Config, error) {
	lc := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(lc); err != nil {
			return nil, err
		}
	}
	if lc.path == "" {
		return nil, fmt.Errorf("configuration path is required")
	}

	data, err := os.ReadFile(lc.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills unset optional fields.
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "require"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 25
	}
	if c.Directory.Timeout == 0 {
		c.Directory.Timeout = Duration(30 * time.Second)
	}
	if c.Sync.Freshness == 0 {
		c.Sync.Freshness = Duration(10 * time.Minute)
	}
	if c.Sync.BackfillWindow == 0 {
		c.Sync.BackfillWindow = Duration(24 * time.Hour)
	}
	if c.Sync.MaxPages == 0 {
		c.Sync.MaxPages = 5
	}
	if c.Sync.PageSize == 0 {
		c.Sync.PageSize = 50
	}
	if c.Sync.Deadline == 0 {
		c.Sync.Deadline = Duration(180 * time.Second)
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = Duration(2 * time.Minute)
	}
	if c.Sync.StatusRetention == 0 {
		c.Sync.StatusRetention = Duration(30 * time.Second)
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := c.Database.validate(); err != nil {
		return err
	}
	if err := c.Directory.validate(); err != nil {
		return err
	}
	return c.Sync.validate()
}

func (d *DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535, got %d", d.Port)
	}
	if d.User == "" {
		return fmt.Errorf("database user is required")
	}
	if d.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

func (d *DirectoryConfig) validate() error {
	if d.BaseURL == "" {
		return fmt.Errorf("directory baseUrl is required")
	}
	parsed, err := url.Parse(d.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid directory baseUrl: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("directory baseUrl must use http or https, got %q", parsed.Scheme)
	}
	return nil
}

func (s *SyncConfig) validate() error {
	if s.BackfillWindow.Std() < time.Hour || s.BackfillWindow.Std() > 7*24*time.Hour {
		return fmt.Errorf("sync backfillWindow must be between 1h and 168h, got %s", s.BackfillWindow)
	}
	if s.MaxPages < 1 || s.MaxPages > 10 {
		return fmt.Errorf("sync maxPages must be between 1 and 10, got %d", s.MaxPages)
	}
	if s.PageSize < 1 || s.PageSize > 100 {
		return fmt.Errorf("sync pageSize must be between 1 and 100, got %d", s.PageSize)
	}
	if s.Deadline.Std() <= 0 {
		return fmt.Errorf("sync deadline must be positive, got %s", s.Deadline)
	}
	return nil
}

// GetPassword returns the database password using the following
// priority: password file, environment variable, inline config value.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		data, err := os.ReadFile(d.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if password := os.Getenv(EnvDBPassword); password != "" {
		return password, nil
	}

	if d.Password != "" {
		return d.Password, nil
	}

	return "", fmt.Errorf("database password not configured (set passwordFile, %s, or password)", EnvDBPassword)
}

// GetConnectionString builds a PostgreSQL connection URL with proper
// password handling.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		d.SSLMode,
	), nil
}

// GetToken returns the directory bearer token, preferring the
// environment variable over the inline config value.
func (d *DirectoryConfig) GetToken() string {
	if token := os.Getenv(EnvDirectoryToken); token != "" {
		return token
	}
	return d.Token
}
