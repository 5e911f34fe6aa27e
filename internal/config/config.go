package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Repository RepositoryConfig `yaml:"repository"`
	Sync       SyncConfig       `yaml:"sync"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Azure      AzureConfig      `yaml:"azure"`
	Log        LogConfig        `yaml:"log"`
}

// RepositoryConfig points at the git repository whose history is served
type RepositoryConfig struct {
	Path string `yaml:"path" validate:"required"`
	// Backend selects the git implementation: "exec" (git binary) or "gogit"
	Backend string `yaml:"backend" validate:"oneof=exec gogit"`
	GitBin  string `yaml:"git_bin"`
}

// SyncConfig contains history import settings
type SyncConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
	Ref      string        `yaml:"ref"`
	Depth    int           `yaml:"depth" validate:"gte=1"`
	// Watch re-imports when refs under .git change
	Watch bool `yaml:"watch"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port" validate:"gte=1,lte=65535"`
	Host string `yaml:"host"`
}

// AzureConfig contains the optional Azure Blob snapshot cache settings.
// The cache is disabled when StorageAccount is empty.
type AzureConfig struct {
	StorageAccount   string `yaml:"storage_account"`
	Container        string `yaml:"container"`
	Prefix           string `yaml:"prefix"`
	ConnectionString string `yaml:"connection_string"`
	SASToken         string `yaml:"sas_token"`
	// For service principal auth
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	// Use managed identity
	UseManagedIdentity bool `yaml:"use_managed_identity"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=console json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML, expanding environment variables first
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified config options
func (c *Config) applyDefaults() {
	if c.Repository.Path == "" {
		c.Repository.Path = "."
	}

	if c.Repository.Backend == "" {
		c.Repository.Backend = "exec"
	}

	if c.Sync.Interval == 0 {
		c.Sync.Interval = time.Minute
	}

	if c.Sync.Ref == "" {
		c.Sync.Ref = "HEAD"
	}

	if c.Sync.Depth == 0 {
		c.Sync.Depth = 200
	}

	if c.Database.Path == "" {
		c.Database.Path = "./history-lens.db"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}

	if c.Azure.Prefix == "" {
		c.Azure.Prefix = "snapshots"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
}

// validate checks that the configuration is valid
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if !c.Azure.Enabled() {
		return nil
	}

	if c.Azure.Container == "" {
		return fmt.Errorf("azure.container is required when azure.storage_account is set")
	}

	if c.Azure.GetAuthMethod() == "none" {
		return fmt.Errorf("no Azure authentication method configured (connection_string, sas_token, managed_identity, or service principal)")
	}

	return nil
}

// UnmarshalYAML implements custom unmarshaling for SyncConfig to handle duration
func (s *SyncConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawSyncConfig struct {
		Interval string `yaml:"interval"`
		Ref      string `yaml:"ref"`
		Depth    int    `yaml:"depth"`
		Watch    bool   `yaml:"watch"`
	}

	var raw rawSyncConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Interval != "" {
		duration, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("invalid sync interval: %w", err)
		}
		s.Interval = duration
	}

	s.Ref = raw.Ref
	s.Depth = raw.Depth
	s.Watch = raw.Watch
	return nil
}

// Enabled reports whether the blob snapshot cache is configured
func (c *AzureConfig) Enabled() bool {
	return c.StorageAccount != ""
}

// GetAuthMethod returns a string describing the configured auth method
func (c *AzureConfig) GetAuthMethod() string {
	if c.ConnectionString != "" {
		return "connection_string"
	}
	if c.SASToken != "" {
		return "sas_token"
	}
	if c.UseManagedIdentity {
		return "managed_identity"
	}
	if c.TenantID != "" && c.ClientID != "" && c.ClientSecret != "" {
		return "service_principal"
	}
	return "none"
}

// GetServiceURL returns the Azure Blob service URL
func (c *AzureConfig) GetServiceURL() string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/", strings.TrimSpace(c.StorageAccount))
}
