// Package main is the entry point for the sightgate gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/sightgate/sightgate/internal/archive"
	"github.com/sightgate/sightgate/internal/config"
	"github.com/sightgate/sightgate/internal/credentials"
	"github.com/sightgate/sightgate/internal/eiq"
	"github.com/sightgate/sightgate/internal/events"
	"github.com/sightgate/sightgate/internal/journal"
	"github.com/sightgate/sightgate/internal/server"
	"github.com/sightgate/sightgate/pkg/log"
	"github.com/sightgate/sightgate/pkg/metrics"
	"github.com/sightgate/sightgate/pkg/tracing"
)

// Build information, set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootstrap := log.New("info", "json")
		bootstrap.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize logger
	logger := log.New(cfg.Log.Level, cfg.Log.Format).With().
		Str("service", "sightgate").
		Logger()
	zlog.Logger = logger

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_time", buildTime).
		Str("go_version", runtime.Version()).
		Msg("starting sightgate")

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Initialize metrics
	appMetrics := metrics.NewMetrics()
	logger.Info().Msg("metrics initialized")

	// Initialize tracing
	var tracer *tracing.Tracer
	if cfg.Observability.TracingEnabled && cfg.Observability.TracingEndpoint != "" {
		tracer, err = tracing.InitTracer(tracing.Config{
			ServiceName:    "sightgate",
			ServiceVersion: version,
			Endpoint:       cfg.Observability.TracingEndpoint,
			Insecure:       cfg.Observability.TracingInsecure,
			SampleRate:     cfg.Observability.TracingSampleRate,
			Environment:    cfg.Observability.Environment,
			Enabled:        true,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize tracing - continuing without tracing")
		} else {
			logger.Info().
				Str("endpoint", cfg.Observability.TracingEndpoint).
				Float64("sample_rate", cfg.Observability.TracingSampleRate).
				Msg("tracing initialized")
		}
	} else {
		logger.Info().Msg("tracing disabled")
	}

	// Open the submission journal
	jrnl, err := openJournal(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open submission journal")
	}
	defer jrnl.Close()

	// Create the archive store if enabled
	archiveStore, err := createArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create archive store")
	}

	// Create the secret store client
	secretStore, err := credentials.NewStoreClient(credentials.StoreConfig{
		BaseURL: cfg.SecretStore.BaseURL,
		Token:   cfg.SecretStore.Token,
		Timeout: cfg.SecretStore.Timeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create secret store client")
	}

	resolver := credentials.NewResolver(cfg.SecretStore.AppScope, logger)

	// Create the platform client
	platform, err := eiq.NewClient(eiq.Config{
		PlatformURL: cfg.Platform.URL,
		Timeout:     cfg.Platform.Timeout,
		Proxy: eiq.ProxyConfig{
			Enabled:  cfg.Proxy.Enabled,
			Type:     cfg.Proxy.Type,
			Host:     cfg.Proxy.Host,
			Port:     cfg.Proxy.Port,
			Username: cfg.Proxy.Username,
		},
		EnableTracing: tracer != nil,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create platform client")
	}

	// Create the event hub and publisher
	eventHub := events.NewHubWithConfig(events.HubConfig{
		Metrics: appMetrics.Gateway,
	}, logger)
	publisher := events.NewHubPublisher(eventHub, logger)
	wsHandler := events.NewHandler(eventHub, logger)

	// Wire the submission pipeline
	sightings := server.NewSightingHandler(server.SightingDeps{
		Secrets:       secretStore,
		Resolver:      resolver,
		Platform:      platform,
		Journal:       jrnl,
		JournalDriver: cfg.Journal.Driver,
		Publisher:     publisher,
		Archiver:      archiveStore,
		Metrics:       appMetrics.Gateway,
	}, logger)

	// Create HTTP server
	httpConfig := server.HTTPConfig{
		Port:           cfg.Server.HTTPPort,
		EnableCORS:     cfg.Server.CORSEnabled,
		AllowedOrigins: []string{"*"},
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   cfg.Platform.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		WebSocketPath:  "/ws",
		EnableTracing:  tracer != nil,
		Metrics:        appMetrics.Gateway,
	}
	httpServer := server.NewHTTPServer(httpConfig, sightings, wsHandler, logger)

	// Create metrics server
	metricsServer := server.NewMetricsServer(server.MetricsServerConfig{
		Port:         cfg.Server.MetricsPort,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Path:         "/metrics",
	}, appMetrics, logger)

	// Channel to collect errors from servers
	errCh := make(chan error, 3)

	// Start event hub
	go func() {
		eventHub.Run(ctx)
	}()

	// Start HTTP server
	go func() {
		if err := httpServer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server
	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	logger.Info().
		Int("http_port", cfg.Server.HTTPPort).
		Int("metrics_port", cfg.Server.MetricsPort).
		Str("journal_driver", cfg.Journal.Driver).
		Bool("archive_enabled", cfg.ArchiveEnabled()).
		Bool("proxy_enabled", cfg.ProxyEnabled()).
		Msg("sightgate started")

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
	}

	// Initiate graceful shutdown
	logger.Info().Msg("initiating graceful shutdown")
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	// Shutdown tracer first (to flush any pending spans)
	if tracer != nil {
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("tracer shutdown error")
			shutdownErr = err
		} else {
			logger.Info().Msg("tracer shutdown complete")
		}
	}

	// Shutdown metrics server
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown error")
		shutdownErr = err
	}

	// Shutdown HTTP server
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
		shutdownErr = err
	}

	if shutdownErr != nil {
		logger.Error().Msg("shutdown completed with errors")
		os.Exit(1)
	}

	logger.Info().Msg("shutdown completed successfully")
}

// openJournal opens the configured journal backend.
func openJournal(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (journal.Journal, error) {
	switch cfg.Journal.Driver {
	case journal.DriverPostgres:
		logger.Info().Msg("connecting to postgres journal")
		return journal.NewPostgres(ctx, journal.PostgresConfig{
			URL:      cfg.Journal.URL,
			MaxConns: int32(cfg.Journal.MaxConns),
		})
	default:
		logger.Info().Str("path", cfg.Journal.Path).Msg("opening sqlite journal")
		return journal.NewSQLite(cfg.Journal.Path)
	}
}

// createArchive creates the archive store when enabled. Returns nil when
// archiving is disabled.
func createArchive(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (server.DocumentArchiver, error) {
	if !cfg.ArchiveEnabled() {
		logger.Info().Msg("document archiving disabled")
		return nil, nil
	}

	store, err := archive.NewStore(archive.Config{
		Endpoint:        cfg.Archive.Endpoint,
		Bucket:          cfg.Archive.Bucket,
		Region:          cfg.Archive.Region,
		AccessKeyID:     cfg.Archive.AccessKeyID,
		SecretAccessKey: cfg.Archive.SecretAccessKey,
		UseSSL:          cfg.Archive.UseSSL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive store: %w", err)
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := store.EnsureBucket(ensureCtx); err != nil {
		logger.Warn().Err(err).Msg("failed to ensure archive bucket exists - archiving may not work")
	}

	if err := store.HealthCheck(ensureCtx); err != nil {
		logger.Warn().Err(err).Msg("archive health check failed")
	} else {
		logger.Info().
			Str("bucket", cfg.Archive.Bucket).
			Str("endpoint", cfg.Archive.Endpoint).
			Msg("document archive initialized")
	}

	return store, nil
}
