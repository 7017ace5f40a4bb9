// Loregated is the extraction-verification gateway daemon for the loregate
// writing assistant.
//
// It quarantines automatically extracted story elements (characters, world
// rules, foreshadowing seeds, payoffs, facts) until a human reviewer
// approves, rejects, or edits them, and serves the approved-only view the
// retrieval side of the application reads from.
//
// Configuration is loaded from ~/.config/loregate/config.yaml and overridden
// by environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	loregated
//
//	# Configure via environment
//	SERVER_PORT=8700 DATABASE_PATH=/var/lib/loregate/ledger.db loregated
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/fablesmith/loregate/internal/bulk"
	"github.com/fablesmith/loregate/internal/config"
	"github.com/fablesmith/loregate/internal/gateway"
	"github.com/fablesmith/loregate/internal/httpapi"
	"github.com/fablesmith/loregate/internal/ledger"
	"github.com/fablesmith/loregate/internal/logging"
	"github.com/fablesmith/loregate/internal/stats"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  loregated           Start the verification gateway daemon\n")
			fmt.Fprintf(os.Stderr, "  loregated version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("loregated by Fablesmith\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until context cancellation.
//
// Initialization order: config, logger, ledger, stats aggregator, gateway,
// bulk orchestrator, HTTP server. Returns http.ErrServerClosed on graceful
// shutdown.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting loregated",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	// Bridge the domain counters into the Prometheus registry that the
	// /metrics endpoint serves. The exporter registers on the default
	// registerer, the same one promhttp.Handler reads, and the meter
	// provider must be global before the services create their instruments.
	promExporter, err := otelprom.New()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter))
	otel.SetMeterProvider(meterProvider)
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to shut down meter provider", zap.Error(err))
		}
	}()

	store, err := ledger.Open(cfg.Database.Path, logger.Named("ledger"))
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close ledger", zap.Error(err))
		}
	}()

	aggregator, err := stats.New(store, cfg.Stats.CacheTTL.Duration(), logger.Named("stats"))
	if err != nil {
		return fmt.Errorf("failed to initialize stats aggregator: %w", err)
	}

	gw, err := gateway.NewService(store, aggregator, logger.Named("gateway"))
	if err != nil {
		return fmt.Errorf("failed to initialize verification gateway: %w", err)
	}

	orchestrator, err := bulk.New(store, gw, cfg.Bulk.Workers, logger.Named("bulk"))
	if err != nil {
		return fmt.Errorf("failed to initialize bulk orchestrator: %w", err)
	}

	srv, err := httpapi.NewServer(store, gw, aggregator, orchestrator, logger.Named("http"), &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"),
		zap.Int("bulk_workers", cfg.Bulk.Workers),
		zap.Duration("stats_cache_ttl", cfg.Stats.CacheTTL.Duration()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Drain the listener error after a clean shutdown.
	select {
	case err := <-errCh:
		return err
	case <-time.After(time.Second):
		return http.ErrServerClosed
	}
}
