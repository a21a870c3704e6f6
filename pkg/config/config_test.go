package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happsea/hub-sso-bridge/pkg/observability"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

func TestLoadConfig_Defaults(t *testing.T) {
	withEnv(t, "BRIDGE_POSTGRES_URL", "postgres://localhost/bridge_test?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "HUB_SSO_SECRET", cfg.Hub.SecretEnv)
	assert.Equal(t, 5*time.Minute, cfg.Hub.ReplayWindow)
	assert.Equal(t, "/api/auth/callback/hub-sso", cfg.Hub.CredentialsAuthPath)
	assert.Equal(t, "/auth/login?error=sso_failed", cfg.Hub.LoginErrorPath)

	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 90*24*time.Hour, cfg.Audit.Retention)
	assert.Equal(t, "@daily", cfg.Audit.CleanupSchedule)

	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	withEnv(t, "BRIDGE_POSTGRES_URL", "postgres://localhost/bridge?sslmode=disable")
	withEnv(t, "BRIDGE_PORT", "8181")
	withEnv(t, "BRIDGE_LOG_LEVEL", "debug")
	withEnv(t, "HUB_SSO_REPLAY_WINDOW", "2m")
	withEnv(t, "BRIDGE_BASE_URL", "https://cal.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.Hub.ReplayWindow)
	assert.Equal(t, "https://cal.example.com", cfg.Hub.BaseURL)
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	withEnv(t, "BRIDGE_POSTGRES_URL", "postgres://localhost/bridge?sslmode=disable")

	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9999"
hub:
  base_url: https://cal.example.com
`), 0o600))
	withEnv(t, "BRIDGE_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "https://cal.example.com", cfg.Hub.BaseURL)
	// untouched fields keep env defaults
	assert.Equal(t, "9090", cfg.Server.HealthPort)
}

func TestLoadConfig_FileMissing(t *testing.T) {
	withEnv(t, "BRIDGE_POSTGRES_URL", "postgres://localhost/bridge?sslmode=disable")
	withEnv(t, "BRIDGE_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", HealthPort: "9090"},
			Hub: HubConfig{
				SecretEnv:    "HUB_SSO_SECRET",
				ReplayWindow: 5 * time.Minute,
				BaseURL:      "http://localhost:8080",
			},
			Database: DatabaseConfig{URL: "postgres://localhost/bridge"},
			Audit:    AuditConfig{Enabled: true, Retention: time.Hour, CleanupSchedule: "@daily"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "port collision",
			mutate:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: "must be different",
		},
		{
			name:    "missing postgres",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "postgres URL is required",
		},
		{
			name:    "trailing slash base url",
			mutate:  func(c *Config) { c.Hub.BaseURL = "http://localhost:8080/" },
			wantErr: "must not end with a slash",
		},
		{
			name:    "zero replay window",
			mutate:  func(c *Config) { c.Hub.ReplayWindow = 0 },
			wantErr: "replay window must be positive",
		},
		{
			name: "no secret location",
			mutate: func(c *Config) {
				c.Hub.SecretEnv = ""
				c.Hub.SecretFile = ""
			},
			wantErr: "secret env name or a secret file",
		},
		{
			name:    "audit retention",
			mutate:  func(c *Config) { c.Audit.Retention = 0 },
			wantErr: "audit retention must be positive",
		},
		{
			name: "otel endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
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

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("nonsense"))
}
