// Package config provides configuration loading for the indexer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// PLUGINDEX_GITHUB_TOKEN.
const EnvPrefix = "PLUGINDEX"

const (
	// StorageTypeFile persists collections in a local directory.
	StorageTypeFile = "file"

	// StorageTypeGCS persists collections in a Google Cloud Storage bucket.
	StorageTypeGCS = "gcs"
)

// Config is the root configuration structure.
type Config struct {
	GitHub    GitHubConfig    `yaml:"github"`
	Storage   StorageConfig   `yaml:"storage"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Server    ServerConfig    `yaml:"server"`
}

// GitHubConfig holds the external search API settings. The token is treated
// as an opaque input; anonymous access works but is rate limited far below
// what a full run needs.
type GitHubConfig struct {
	Token   string `yaml:"token,omitempty"`
	BaseURL string `yaml:"baseUrl,omitempty"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Type   string `yaml:"type"`
	Path   string `yaml:"path,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// DiscoveryConfig tunes the pipeline.
type DiscoveryConfig struct {
	Concurrency int `yaml:"concurrency,omitempty"`
}

// ServerConfig holds the API server settings.
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`
}

// Default returns the built-in configuration: file storage under the XDG
// data directory, modest validation concurrency.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Type: StorageTypeFile,
			Path: filepath.Join(xdg.DataHome, "plugindex"),
		},
		Discovery: DiscoveryConfig{Concurrency: 5},
		Server:    ServerConfig{Address: ":8080"},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // Path comes from user configuration
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers PLUGINDEX_* environment variables over the file
// values.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if token := v.GetString("github.token"); token != "" {
		cfg.GitHub.Token = token
	}
	if baseURL := v.GetString("github.baseurl"); baseURL != "" {
		cfg.GitHub.BaseURL = baseURL
	}
	if storageType := v.GetString("storage.type"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if path := v.GetString("storage.path"); path != "" {
		cfg.Storage.Path = path
	}
	if bucket := v.GetString("storage.bucket"); bucket != "" {
		cfg.Storage.Bucket = bucket
	}
	if prefix := v.GetString("storage.prefix"); prefix != "" {
		cfg.Storage.Prefix = prefix
	}
	if concurrency := v.GetInt("discovery.concurrency"); concurrency > 0 {
		cfg.Discovery.Concurrency = concurrency
	}
	if address := v.GetString("server.address"); address != "" {
		cfg.Server.Address = address
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageTypeFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for type %s", StorageTypeFile)
		}
	case StorageTypeGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for type %s", StorageTypeGCS)
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.Discovery.Concurrency <= 0 {
		return fmt.Errorf("discovery concurrency must be positive")
	}
	return nil
}
