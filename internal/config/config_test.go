package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setTestEnv sets environment variables for testing and returns a cleanup function.
func setTestEnv(t *testing.T, envVars map[string]string) {
	t.Helper()

	original := make(map[string]string)
	for key := range envVars {
		original[key] = os.Getenv(key)
	}

	for key, value := range envVars {
		os.Setenv(key, value)
	}

	t.Cleanup(func() {
		for key, value := range original {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	})
}

// minimalValidEnv returns the minimum required environment variables for a valid config.
func minimalValidEnv() map[string]string {
	return map[string]string{
		"SIGHTGATE_PLATFORM_URL":       "https://ic.example.com/api/v2",
		"SIGHTGATE_SECRET_STORE_URL":   "https://store.local:8089",
		"SIGHTGATE_SECRET_STORE_TOKEN": "store-token",
	}
}

func TestLoad_WithValidConfig(t *testing.T) {
	env := minimalValidEnv()
	env["SIGHTGATE_HTTP_PORT"] = "8081"
	env["SIGHTGATE_PLATFORM_TIMEOUT"] = "20s"
	env["SIGHTGATE_LOG_LEVEL"] = "debug"
	env["SIGHTGATE_LOG_FORMAT"] = "console"
	setTestEnv(t, env)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.HTTPPort)
	assert.Equal(t, 20*time.Second, cfg.Platform.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_Defaults(t *testing.T) {
	setTestEnv(t, minimalValidEnv())

	cfg, err := Load()
	require.NoError(t, err)

	// Server defaults
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.CORSEnabled)

	// Platform defaults
	assert.Equal(t, 50*time.Second, cfg.Platform.Timeout)

	// Secret store defaults
	assert.Equal(t, "TA-eclecticiq", cfg.SecretStore.AppScope)
	assert.Equal(t, 10*time.Second, cfg.SecretStore.Timeout)

	// Journal defaults
	assert.Equal(t, "sqlite", cfg.Journal.Driver)
	assert.Equal(t, "sightgate.db", cfg.Journal.Path)
	assert.Equal(t, 10, cfg.Journal.MaxConns)

	// Archive defaults
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "us-east-1", cfg.Archive.Region)
	assert.True(t, cfg.Archive.UseSSL)

	// Log defaults
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Observability defaults
	assert.False(t, cfg.Observability.TracingEnabled)
	assert.Equal(t, 1.0, cfg.Observability.TracingSampleRate)
	assert.Equal(t, "development", cfg.Observability.Environment)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{name: "platform URL", omit: "SIGHTGATE_PLATFORM_URL"},
		{name: "secret store URL", omit: "SIGHTGATE_SECRET_STORE_URL"},
		{name: "secret store token", omit: "SIGHTGATE_SECRET_STORE_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := minimalValidEnv()
			env[tt.omit] = ""
			setTestEnv(t, env)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{HTTPPort: 0, MetricsPort: 0},
		Journal: JournalConfig{Driver: "bogus"},
		Log:     LogConfig{Level: "loud", Format: "xml"},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Errors), 5)
	assert.Contains(t, verr.Error(), "validation errors")
}

func TestValidate_JournalDrivers(t *testing.T) {
	base := func() *Config {
		cfg := &Config{
			Server:      ServerConfig{HTTPPort: 8080, MetricsPort: 9091},
			Platform:    PlatformConfig{URL: "https://ic.example.com", Timeout: time.Second},
			SecretStore: SecretStoreConfig{BaseURL: "https://store.local", Token: "t", AppScope: "TA-eclecticiq"},
			Log:         LogConfig{Level: "info", Format: "json"},
		}
		return cfg
	}

	t.Run("sqlite requires path", func(t *testing.T) {
		cfg := base()
		cfg.Journal = JournalConfig{Driver: "sqlite"}
		assert.Error(t, cfg.Validate())

		cfg.Journal.Path = "journal.db"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("postgres requires URL", func(t *testing.T) {
		cfg := base()
		cfg.Journal = JournalConfig{Driver: "postgres", MaxConns: 10}
		assert.Error(t, cfg.Validate())

		cfg.Journal.URL = "postgres://localhost/sightgate"
		assert.NoError(t, cfg.Validate())
	})
}

func TestValidate_ProxyRequiresHost(t *testing.T) {
	env := minimalValidEnv()
	env["SIGHTGATE_PROXY_ENABLED"] = "1"
	setTestEnv(t, env)

	_, err := Load()
	require.Error(t, err)

	env["SIGHTGATE_PROXY_HOST"] = "proxy.local"
	setTestEnv(t, env)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.ProxyEnabled())
}

func TestProxyEnabled_OnlyOne(t *testing.T) {
	assert.True(t, (&Config{Proxy: ProxyConfig{Enabled: "1"}}).ProxyEnabled())
	assert.False(t, (&Config{Proxy: ProxyConfig{Enabled: "true"}}).ProxyEnabled())
	assert.False(t, (&Config{Proxy: ProxyConfig{Enabled: "0"}}).ProxyEnabled())
	assert.False(t, (&Config{}).ProxyEnabled())
}

func TestValidate_ArchiveRequirements(t *testing.T) {
	env := minimalValidEnv()
	env["SIGHTGATE_ARCHIVE_ENABLED"] = "true"
	setTestEnv(t, env)

	_, err := Load()
	require.Error(t, err)

	env["SIGHTGATE_ARCHIVE_ENDPOINT"] = "minio.local:9000"
	env["SIGHTGATE_ARCHIVE_BUCKET"] = "sightings"
	env["SIGHTGATE_ARCHIVE_ACCESS_KEY_ID"] = "minioadmin"
	env["SIGHTGATE_ARCHIVE_SECRET_ACCESS_KEY"] = "minioadmin123"
	setTestEnv(t, env)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.ArchiveEnabled())
}

func TestValidate_TracingRequirements(t *testing.T) {
	env := minimalValidEnv()
	env["SIGHTGATE_TRACING_ENABLED"] = "true"
	setTestEnv(t, env)

	_, err := Load()
	require.Error(t, err)

	env["SIGHTGATE_TRACING_ENDPOINT"] = "localhost:4318"
	setTestEnv(t, env)

	_, err = Load()
	require.NoError(t, err)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	env := minimalValidEnv()
	env["SIGHTGATE_HTTP_PORT"] = "not-a-number"
	env["SIGHTGATE_PLATFORM_TIMEOUT"] = "soon"
	env["SIGHTGATE_CORS_ENABLED"] = "yes-please"
	setTestEnv(t, env)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 50*time.Second, cfg.Platform.Timeout)
	assert.False(t, cfg.Server.CORSEnabled)
}
