package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := load("", dir)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "local", cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "store.json"), cfg.Store.Path)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "https://api.valueserp.com", cfg.SerpWow.BaseURL)
	assert.Equal(t, DefaultNames(), cfg.Names)
	assert.Equal(t, 5*time.Second, cfg.Propagation.InitialInterval)
	assert.Equal(t, 3*time.Minute, cfg.Propagation.MaxElapsed)
}

func TestLoad_SettingsFileInDir(t *testing.T) {
	dir := t.TempDir()
	content := `
log_level: debug
aws:
  region: eu-west-1
names:
  snowflake_role: custom_role
propagation:
  max_elapsed: 45s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(content), 0600))

	cfg, err := load("", dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "custom_role", cfg.Names.SnowflakeRole)
	assert.Equal(t, DefaultNames().UploadUser, cfg.Names.UploadUser)
	assert.Equal(t, 45*time.Second, cfg.Propagation.MaxElapsed)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte("log_level: debug\n"), 0600))
	t.Setenv("SERP2SNOW_LOG_LEVEL", "error")
	t.Setenv("SERP2SNOW_AWS_REGION", "ap-southeast-2")

	cfg, err := load("", dir)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "ap-southeast-2", cfg.AWS.Region)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read settings file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr string
	}{
		{name: "local", store: StoreConfig{Backend: "local"}},
		{name: "memory", store: StoreConfig{Backend: "memory"}},
		{name: "s3 with bucket", store: StoreConfig{Backend: "s3", Bucket: "state"}},
		{name: "s3 without bucket", store: StoreConfig{Backend: "s3"}, wantErr: "store.bucket"},
		{name: "unknown", store: StoreConfig{Backend: "redis"}, wantErr: "unknown store backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Store: tt.store}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
