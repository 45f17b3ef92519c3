package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, StorageTypeFile, cfg.Storage.Type)
	assert.NotEmpty(t, cfg.Storage.Path)
	assert.Equal(t, 5, cfg.Discovery.Concurrency)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
github:
  token: ghp_test
  baseUrl: https://github.example.com/api/v3
storage:
  type: gcs
  bucket: plugindex-data
  prefix: prod
discovery:
  concurrency: 10
server:
  address: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ghp_test", cfg.GitHub.Token)
	assert.Equal(t, "https://github.example.com/api/v3", cfg.GitHub.BaseURL)
	assert.Equal(t, StorageTypeGCS, cfg.Storage.Type)
	assert.Equal(t, "plugindex-data", cfg.Storage.Bucket)
	assert.Equal(t, "prod", cfg.Storage.Prefix)
	assert.Equal(t, 10, cfg.Discovery.Concurrency)
	assert.Equal(t, ":9090", cfg.Server.Address)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: ["), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PLUGINDEX_GITHUB_TOKEN", "env-token")
	t.Setenv("PLUGINDEX_STORAGE_PATH", "/var/lib/plugindex")
	t.Setenv("PLUGINDEX_DISCOVERY_CONCURRENCY", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.GitHub.Token)
	assert.Equal(t, "/var/lib/plugindex", cfg.Storage.Path)
	assert.Equal(t, 3, cfg.Discovery.Concurrency)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid file config",
			mutate: func(_ *Config) {},
		},
		{
			name: "valid gcs config",
			mutate: func(c *Config) {
				c.Storage.Type = StorageTypeGCS
				c.Storage.Bucket = "bucket"
			},
		},
		{
			name: "unknown storage type",
			mutate: func(c *Config) {
				c.Storage.Type = "s3"
			},
			wantErr: "unsupported storage type",
		},
		{
			name: "gcs without bucket",
			mutate: func(c *Config) {
				c.Storage.Type = StorageTypeGCS
			},
			wantErr: "storage bucket is required",
		},
		{
			name: "file without path",
			mutate: func(c *Config) {
				c.Storage.Path = ""
			},
			wantErr: "storage path is required",
		},
		{
			name: "bad concurrency",
			mutate: func(c *Config) {
				c.Discovery.Concurrency = 0
			},
			wantErr: "concurrency must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
