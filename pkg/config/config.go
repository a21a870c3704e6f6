package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/happsea/hub-sso-bridge/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Hub SSO configuration
	Hub HubConfig `yaml:"hub"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional replay cache backend)
	Redis RedisConfig `yaml:"redis"`

	// Audit configuration
	Audit AuditConfig `yaml:"audit"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// HubConfig holds the Hub SSO integration settings.
//
// The shared secret itself is never stored here: it is re-read from the
// environment or secret file on every request so that secrets injected
// after process start take effect without a restart.
type HubConfig struct {
	// SecretEnv names the environment variable holding the shared secret
	SecretEnv string `yaml:"secret_env"`
	// SecretFile points at a mounted secret file; takes precedence over SecretEnv
	SecretFile string `yaml:"secret_file"`
	// ReplayWindow bounds how far an assertion timestamp may drift from now
	ReplayWindow time.Duration `yaml:"replay_window"`
	// BaseURL is the externally visible base URL of the web application
	BaseURL string `yaml:"base_url"`
	// CredentialsAuthPath is the external credentials-authorize endpoint the
	// callback page POSTs to
	CredentialsAuthPath string `yaml:"credentials_auth_path"`
	// CSRFPath is the endpoint the callback page fetches a CSRF token from
	CSRFPath string `yaml:"csrf_path"`
	// LoginErrorPath is where the callback page sends the browser on failure
	LoginErrorPath string `yaml:"login_error_path"`
	// PostLoginPath is where the browser lands after a successful sign-in
	PostLoginPath string `yaml:"post_login_path"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL         string        `yaml:"url"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
}

// RedisConfig holds Redis connection configuration for the replay cache
type RedisConfig struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"-"`
	DB         int    `yaml:"db"`
	MaxRetries int    `yaml:"max_retries"`
	PoolSize   int    `yaml:"pool_size"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Retention       time.Duration `yaml:"retention"`
	CleanupSchedule string        `yaml:"cleanup_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel `yaml:"-"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// LoadConfig loads configuration from environment variables, optionally
// overlaid by a YAML file named in BRIDGE_CONFIG_FILE. Environment values
// act as defaults; the file wins where both are set.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Hub:           loadHubConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if path := os.Getenv("BRIDGE_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// overlayFile applies a YAML config file on top of the env-derived config
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BRIDGE_HOST", "0.0.0.0"),
		Port:            getEnv("BRIDGE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BRIDGE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BRIDGE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BRIDGE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BRIDGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("BRIDGE_HEALTH_PORT", "9090"),
	}
}

// loadHubConfig loads Hub SSO configuration from environment
func loadHubConfig() HubConfig {
	return HubConfig{
		SecretEnv:           getEnv("HUB_SSO_SECRET_ENV", "HUB_SSO_SECRET"),
		SecretFile:          getEnv("HUB_SSO_SECRET_FILE", ""),
		ReplayWindow:        getEnvDuration("HUB_SSO_REPLAY_WINDOW", 5*time.Minute),
		BaseURL:             getEnv("BRIDGE_BASE_URL", "http://localhost:8080"),
		CredentialsAuthPath: getEnv("BRIDGE_CREDENTIALS_AUTH_PATH", "/api/auth/callback/hub-sso"),
		CSRFPath:            getEnv("BRIDGE_CSRF_PATH", "/api/auth/csrf"),
		LoginErrorPath:      getEnv("BRIDGE_LOGIN_ERROR_PATH", "/auth/login?error=sso_failed"),
		PostLoginPath:       getEnv("BRIDGE_POST_LOGIN_PATH", "/bookings"),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:         getEnv("BRIDGE_POSTGRES_URL", ""),
		MaxConns:    getEnvInt("BRIDGE_POSTGRES_MAX_CONNS", 10),
		MinConns:    getEnvInt("BRIDGE_POSTGRES_MIN_CONNS", 2),
		Timeout:     getEnvDuration("BRIDGE_POSTGRES_TIMEOUT", 5*time.Second),
		MaxLifetime: getEnvDuration("BRIDGE_POSTGRES_MAX_LIFETIME", 30*time.Minute),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("BRIDGE_REDIS_URL", ""),
		Password:   getEnv("BRIDGE_REDIS_PASSWORD", ""),
		DB:         getEnvInt("BRIDGE_REDIS_DB", 0),
		MaxRetries: getEnvInt("BRIDGE_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("BRIDGE_REDIS_POOL_SIZE", 10),
	}
}

// loadAuditConfig loads audit configuration from environment
func loadAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:         getEnvBool("BRIDGE_AUDIT_ENABLED", true),
		Retention:       getEnvDuration("BRIDGE_AUDIT_RETENTION", 90*24*time.Hour),
		CleanupSchedule: getEnv("BRIDGE_AUDIT_CLEANUP_SCHEDULE", "@daily"),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("BRIDGE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("BRIDGE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("BRIDGE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("BRIDGE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("BRIDGE_OTEL_SERVICE_NAME", "hub-sso-bridge"),
		OTelServiceVersion: getEnv("BRIDGE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("BRIDGE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Hub.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if strings.HasSuffix(c.Hub.BaseURL, "/") {
		return fmt.Errorf("base URL must not end with a slash")
	}
	if c.Hub.ReplayWindow <= 0 {
		return fmt.Errorf("replay window must be positive")
	}
	if c.Hub.SecretEnv == "" && c.Hub.SecretFile == "" {
		return fmt.Errorf("either a secret env name or a secret file is required")
	}

	if c.Audit.Enabled {
		if c.Audit.Retention <= 0 {
			return fmt.Errorf("audit retention must be positive")
		}
		if c.Audit.CleanupSchedule == "" {
			return fmt.Errorf("audit cleanup schedule is required when audit is enabled")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
