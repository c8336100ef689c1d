package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	transferService = "transfer"
	transferGlobal  = "https://transfer.smash.example"
	transferEUWest1 = "https://transfer.eu-west-1.smash.example"
)

const sampleYAML = `
client:
  token: yaml-token
  region: eu-west-1
  timeout: 5s
  maxrefreshattempts: 2
  rate:
    limit: 20
    burst: 5
hosts:
  transfer:
    global: https://transfer.smash.example
    eu-west-1: https://transfer.eu-west-1.smash.example
log:
  level: debug
`

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 1, cfg.Client.MaxRefreshAttempts)
	assert.Equal(t, 1024, cfg.Client.MaxPayloadLogBytes)
	assert.False(t, cfg.Client.LogPayloads)
	assert.Zero(t, cfg.Client.Rate.Limit)
	assert.Empty(t, cfg.Client.Token)
	assert.Empty(t, cfg.Client.Region)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv(EnvRegion, "us-east-2")
	t.Setenv(EnvToken, "env-token")
	t.Setenv("SMASH_CLIENT_TIMEOUT", "12s")
	t.Setenv("SMASH_CLIENT_MAXREFRESHATTEMPTS", "3")
	t.Setenv("SMASH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RegionUSEast2, cfg.Client.Region)
	assert.Equal(t, "env-token", cfg.Client.Token)
	assert.Equal(t, 12*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 3, cfg.Client.MaxRefreshAttempts)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadBytes(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "yaml-token", cfg.Client.Token)
	assert.Equal(t, RegionEUWest1, cfg.Client.Region)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 2, cfg.Client.MaxRefreshAttempts)
	assert.InDelta(t, 20.0, cfg.Client.Rate.Limit, 0.001)
	assert.Equal(t, 5, cfg.Client.Rate.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Defaults survive for keys the file does not mention
	assert.Equal(t, 1024, cfg.Client.MaxPayloadLogBytes)

	assert.Equal(t, transferGlobal, cfg.Hosts[transferService][RegionGlobal])
	assert.Equal(t, transferEUWest1, cfg.Hosts[transferService][RegionEUWest1])
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv(EnvToken, "env-wins")

	cfg, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-wins", cfg.Client.Token)
	assert.Equal(t, RegionEUWest1, cfg.Client.Region)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml-token", cfg.Client.Token)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "unknown_region",
			yaml:  "client:\n  region: mars-north-1\n",
			field: "client.region",
		},
		{
			name:  "negative_timeout",
			yaml:  "client:\n  timeout: -1s\n",
			field: "client.timeout",
		},
		{
			name:  "zero_refresh_attempts",
			yaml:  "client:\n  maxrefreshattempts: 0\n",
			field: "client.maxrefreshattempts",
		},
		{
			name:  "bad_log_level",
			yaml:  "log:\n  level: verbose\n",
			field: "log.level",
		},
		{
			name:  "relative_host",
			yaml:  "hosts:\n  transfer:\n    global: transfer.local\n",
			field: "hosts.transfer.global",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, CategoryInvalid, cfgErr.Category)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestDefault(t *testing.T) {
	t.Setenv(EnvToken, "ignored")

	cfg := Default()
	assert.Empty(t, cfg.Client.Token)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.NoError(t, Validate(cfg))
}

func TestTransformEnv(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SMASH_REGION", "client.region"},
		{"SMASH_TOKEN", "client.token"},
		{"SMASH_CLIENT_USERAGENT", "client.useragent"},
		{"SMASH_CLIENT_RATE_LIMIT", "client.rate.limit"},
		{"SMASH_LOG_PRETTY", "log.pretty"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			key, value := transformEnv(tt.in, "v")
			assert.Equal(t, tt.want, key)
			assert.Equal(t, "v", value)
		})
	}
}
