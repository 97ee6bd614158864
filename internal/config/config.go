// Package config provides configuration management for the sighting gateway.
// Configuration is loaded from environment variables with the SIGHTGATE_ prefix.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration settings for the gateway.
type Config struct {
	Server        ServerConfig
	Platform      PlatformConfig
	Proxy         ProxyConfig
	SecretStore   SecretStoreConfig
	Journal       JournalConfig
	Archive       ArchiveConfig
	Log           LogConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP and metrics server settings.
type ServerConfig struct {
	// HTTPPort is the port for the sighting API (default: 8080)
	HTTPPort int
	// MetricsPort is the port for Prometheus metrics (default: 9091)
	MetricsPort int
	// ShutdownTimeout is the graceful shutdown timeout (default: 30s)
	ShutdownTimeout time.Duration
	// CORSEnabled enables permissive CORS headers on the API (default: false)
	CORSEnabled bool
}

// PlatformConfig holds intelligence platform connection settings.
type PlatformConfig struct {
	// URL is the platform API base, e.g. "https://ic.example.com/api/v2" (required)
	URL string
	// Timeout bounds a single entity delivery (default: 50s)
	Timeout time.Duration
}

// ProxyConfig holds outbound proxy settings for platform deliveries.
// Enabled follows the upstream convention: the proxy is active only when the
// value is exactly "1".
type ProxyConfig struct {
	Enabled  string
	Type     string
	Host     string
	Port     string
	Username string
}

// SecretStoreConfig holds secret store connection settings. The store is the
// source of platform and proxy credentials.
type SecretStoreConfig struct {
	// BaseURL is the secret store endpoint (required)
	BaseURL string
	// Token is the bearer token for store requests (required)
	Token string
	// AppScope restricts credential listings to records owned by this
	// application scope (default: TA-eclecticiq)
	AppScope string
	// Timeout bounds a single listing request (default: 10s)
	Timeout time.Duration
}

// JournalConfig holds submission journal settings.
type JournalConfig struct {
	// Driver selects the journal backend: sqlite or postgres (default: sqlite)
	Driver string
	// Path is the SQLite database file path (default: sightgate.db)
	Path string
	// URL is the PostgreSQL connection string (required when driver is postgres)
	URL string
	// MaxConns is the maximum PostgreSQL pool size (default: 10)
	MaxConns int
	// QueryTimeout is the default query timeout (default: 30s)
	QueryTimeout time.Duration
}

// ArchiveConfig holds S3/MinIO settings for archiving delivered entity
// documents.
type ArchiveConfig struct {
	// Enabled turns archiving on (default: false)
	Enabled bool
	// Endpoint is the S3/MinIO endpoint URL (required when enabled)
	Endpoint string
	// Bucket is the bucket name for archived documents (required when enabled)
	Bucket string
	// Region is the storage region (default: us-east-1)
	Region string
	// AccessKeyID is the access key (required when enabled)
	AccessKeyID string
	// SecretAccessKey is the secret key (required when enabled)
	SecretAccessKey string
	// UseSSL enables SSL for MinIO connections (default: true)
	UseSSL bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error) (default: info)
	Level string
	// Format is the log format (json, console) (default: json)
	Format string
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	// TracingEnabled enables OpenTelemetry tracing (default: false)
	TracingEnabled bool
	// TracingEndpoint is the OTLP collector endpoint (e.g., "localhost:4318")
	TracingEndpoint string
	// TracingInsecure disables TLS for the tracing connection (default: true)
	TracingInsecure bool
	// TracingSampleRate is the sampling rate (0.0 to 1.0) (default: 1.0)
	TracingSampleRate float64
	// Environment is the deployment environment (e.g., "production", "staging")
	Environment string
}

// Load reads configuration from environment variables.
// Environment variables use the SIGHTGATE_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			HTTPPort:        getEnvInt("SIGHTGATE_HTTP_PORT", 8080),
			MetricsPort:     getEnvInt("SIGHTGATE_METRICS_PORT", 9091),
			ShutdownTimeout: getEnvDuration("SIGHTGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSEnabled:     getEnvBool("SIGHTGATE_CORS_ENABLED", false),
		},
		Platform: PlatformConfig{
			URL:     getEnv("SIGHTGATE_PLATFORM_URL", ""),
			Timeout: getEnvDuration("SIGHTGATE_PLATFORM_TIMEOUT", 50*time.Second),
		},
		Proxy: ProxyConfig{
			Enabled:  getEnv("SIGHTGATE_PROXY_ENABLED", ""),
			Type:     getEnv("SIGHTGATE_PROXY_TYPE", ""),
			Host:     getEnv("SIGHTGATE_PROXY_HOST", ""),
			Port:     getEnv("SIGHTGATE_PROXY_PORT", ""),
			Username: getEnv("SIGHTGATE_PROXY_USERNAME", ""),
		},
		SecretStore: SecretStoreConfig{
			BaseURL:  getEnv("SIGHTGATE_SECRET_STORE_URL", ""),
			Token:    getEnv("SIGHTGATE_SECRET_STORE_TOKEN", ""),
			AppScope: getEnv("SIGHTGATE_SECRET_STORE_APP_SCOPE", "TA-eclecticiq"),
			Timeout:  getEnvDuration("SIGHTGATE_SECRET_STORE_TIMEOUT", 10*time.Second),
		},
		Journal: JournalConfig{
			Driver:       getEnv("SIGHTGATE_JOURNAL_DRIVER", "sqlite"),
			Path:         getEnv("SIGHTGATE_JOURNAL_PATH", "sightgate.db"),
			URL:          getEnv("SIGHTGATE_JOURNAL_URL", ""),
			MaxConns:     getEnvInt("SIGHTGATE_JOURNAL_MAX_CONNS", 10),
			QueryTimeout: getEnvDuration("SIGHTGATE_JOURNAL_QUERY_TIMEOUT", 30*time.Second),
		},
		Archive: ArchiveConfig{
			Enabled:         getEnvBool("SIGHTGATE_ARCHIVE_ENABLED", false),
			Endpoint:        getEnv("SIGHTGATE_ARCHIVE_ENDPOINT", ""),
			Bucket:          getEnv("SIGHTGATE_ARCHIVE_BUCKET", ""),
			Region:          getEnv("SIGHTGATE_ARCHIVE_REGION", "us-east-1"),
			AccessKeyID:     getEnv("SIGHTGATE_ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("SIGHTGATE_ARCHIVE_SECRET_ACCESS_KEY", ""),
			UseSSL:          getEnvBool("SIGHTGATE_ARCHIVE_USE_SSL", true),
		},
		Log: LogConfig{
			Level:  getEnv("SIGHTGATE_LOG_LEVEL", "info"),
			Format: getEnv("SIGHTGATE_LOG_FORMAT", "json"),
		},
		Observability: ObservabilityConfig{
			TracingEnabled:    getEnvBool("SIGHTGATE_TRACING_ENABLED", false),
			TracingEndpoint:   getEnv("SIGHTGATE_TRACING_ENDPOINT", ""),
			TracingInsecure:   getEnvBool("SIGHTGATE_TRACING_INSECURE", true),
			TracingSampleRate: getEnvFloat("SIGHTGATE_TRACING_SAMPLE_RATE", 1.0),
			Environment:       getEnv("SIGHTGATE_ENVIRONMENT", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set and valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		errs = append(errs, errors.New("SIGHTGATE_HTTP_PORT must be between 1 and 65535"))
	}
	if c.Server.MetricsPort < 1 || c.Server.MetricsPort > 65535 {
		errs = append(errs, errors.New("SIGHTGATE_METRICS_PORT must be between 1 and 65535"))
	}

	// Platform validation (required)
	if c.Platform.URL == "" {
		errs = append(errs, errors.New("SIGHTGATE_PLATFORM_URL is required"))
	}
	if c.Platform.Timeout <= 0 {
		errs = append(errs, errors.New("SIGHTGATE_PLATFORM_TIMEOUT must be greater than 0"))
	}

	// Proxy validation (conditional)
	if c.ProxyEnabled() && c.Proxy.Host == "" {
		errs = append(errs, errors.New("SIGHTGATE_PROXY_HOST is required when the proxy is enabled"))
	}

	// Secret store validation (required)
	if c.SecretStore.BaseURL == "" {
		errs = append(errs, errors.New("SIGHTGATE_SECRET_STORE_URL is required"))
	}
	if c.SecretStore.Token == "" {
		errs = append(errs, errors.New("SIGHTGATE_SECRET_STORE_TOKEN is required"))
	}
	if c.SecretStore.AppScope == "" {
		errs = append(errs, errors.New("SIGHTGATE_SECRET_STORE_APP_SCOPE cannot be empty"))
	}

	// Journal validation
	switch strings.ToLower(c.Journal.Driver) {
	case "sqlite":
		if c.Journal.Path == "" {
			errs = append(errs, errors.New("SIGHTGATE_JOURNAL_PATH is required when the journal driver is sqlite"))
		}
	case "postgres":
		if c.Journal.URL == "" {
			errs = append(errs, errors.New("SIGHTGATE_JOURNAL_URL is required when the journal driver is postgres"))
		}
		if c.Journal.MaxConns < 1 {
			errs = append(errs, errors.New("SIGHTGATE_JOURNAL_MAX_CONNS must be at least 1"))
		}
	default:
		errs = append(errs, errors.New("SIGHTGATE_JOURNAL_DRIVER must be one of: sqlite, postgres"))
	}

	// Archive validation (conditional)
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			errs = append(errs, errors.New("SIGHTGATE_ARCHIVE_ENDPOINT is required when archiving is enabled"))
		}
		if c.Archive.Bucket == "" {
			errs = append(errs, errors.New("SIGHTGATE_ARCHIVE_BUCKET is required when archiving is enabled"))
		}
		if c.Archive.AccessKeyID == "" {
			errs = append(errs, errors.New("SIGHTGATE_ARCHIVE_ACCESS_KEY_ID is required when archiving is enabled"))
		}
		if c.Archive.SecretAccessKey == "" {
			errs = append(errs, errors.New("SIGHTGATE_ARCHIVE_SECRET_ACCESS_KEY is required when archiving is enabled"))
		}
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, errors.New("SIGHTGATE_LOG_LEVEL must be one of: debug, info, warn, error"))
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, errors.New("SIGHTGATE_LOG_FORMAT must be one of: json, console"))
	}

	// Tracing validation (conditional)
	if c.Observability.TracingEnabled && c.Observability.TracingEndpoint == "" {
		errs = append(errs, errors.New("SIGHTGATE_TRACING_ENDPOINT is required when tracing is enabled"))
	}
	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		errs = append(errs, errors.New("SIGHTGATE_TRACING_SAMPLE_RATE must be between 0.0 and 1.0"))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// ValidationError contains multiple validation errors.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap returns the underlying errors for errors.Is/As compatibility.
func (e *ValidationError) Unwrap() []error {
	return e.Errors
}

// ProxyEnabled returns true if the outbound proxy is configured active.
func (c *Config) ProxyEnabled() bool {
	return c.Proxy.Enabled == "1"
}

// ArchiveEnabled returns true if entity document archiving is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Enabled
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
