package cmd

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailypick/dailypick/internal/config"
	errwrap "github.com/dailypick/dailypick/internal/errors"
	"github.com/dailypick/dailypick/internal/metrics"
	"github.com/dailypick/dailypick/internal/observability"
	"github.com/dailypick/dailypick/internal/server"
	"github.com/dailypick/dailypick/internal/server/handlers"
	servermw "github.com/dailypick/dailypick/internal/server/middleware"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API with graceful shutdown support.

Routes:
  GET  /v1/daily?date=YYYY-MM-DD     pick for a date (default today, UTC)
  GET  /v1/schedule?from=&days=      preview upcoming picks
  GET  /v1/candidates?category=&tag= list the catalog
  GET  /v1/limits[/{key}]            store rate limit usage
  GET  /v1/cache/stats               cache freshness
  POST /v1/cache/cleanup             evict expired cache entries

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload selection rules and overrides from config`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(ctx, serveOverrides(cmd))
		if err != nil {
			return err
		}

		observability.InitServerLoggerWithOptions(observability.ServerLoggerOptions{
			Service: config.AppName,
			Level:   cfg.Logging.Level,
			Profile: cfg.Logging.Profile,
		})
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
			server.FallbackMetricsPort = cfg.Metrics.Port
		}

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}

		logger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Int("metrics_port", cfg.Metrics.Port),
			zap.Bool("ingress_limit", cfg.Ingress.Enabled))

		health := handlers.NewHealthManager(versionInfo.Version)
		health.RegisterChecker("store", a.store)
		if cfg.Metrics.Enabled {
			health.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
		handlers.SetAppName(config.AppName)

		runCtx, stopBackground := context.WithCancel(context.Background())

		var ingress *servermw.IngressLimiter
		if cfg.Ingress.Enabled {
			ingress = servermw.NewIngressLimiter(cfg.Ingress.RequestsPerSecond, cfg.Ingress.Burst, cfg.Ingress.ClientTTL)
			ingress.StartJanitor(runCtx, cfg.Ingress.ClientTTL)
		}

		srv := server.New(cfg.Server, server.Deps{
			API: &handlers.API{
				Picker:      a.picker,
				Catalog:     a.catalog,
				RecordPicks: cfg.Selection.RecordPicks,
			},
			Health:     health,
			Ingress:    ingress,
			AdminToken: os.Getenv(config.EnvPrefix + "_ADMIN_TOKEN"),
		})

		startedAt := time.Now()
		metrics.SetServerStartTime(startedAt.Unix())
		handlers.SetStartTime(startedAt)
		startMaintenance(runCtx, a, cfg.Cache.CleanupInterval, startedAt)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger and close the store (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			stopBackground()
			if err := a.Close(); err != nil {
				logger.Warn("Store close returned error", zap.Error(err))
			}
			if err := observability.ShutdownMetrics(); err != nil {
				logger.Warn("Metrics exporter stop returned error", zap.Error(err))
			}
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		// Handler 2: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		// SIGHUP re-reads the config file and applies what can change live.
		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: attempting config reload")
			return reloadConfig(ctx, a)
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			stopBackground()
			_ = a.Close()
			return errwrap.WrapInternal(ctx, err, "server error")
		}

		return nil
	},
}

// serveOverrides turns explicitly set --host/--port flags into config overrides.
func serveOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	if cmd.Flags().Changed("host") {
		overrides["server.host"] = strings.TrimSpace(serverHost)
	}
	if cmd.Flags().Changed("port") {
		overrides["server.port"] = serverPort
	}
	return overrides
}

// startMaintenance sweeps expired cache entries and reports cache and uptime
// gauges every interval until ctx is done.
func startMaintenance(ctx context.Context, a *app, interval time.Duration, startedAt time.Time) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := a.catalog.Cleanup()
				metrics.SetCacheEntries(a.catalog.CacheStats())
				metrics.SetServerUptime(int64(time.Since(startedAt).Seconds()))
				if removed > 0 {
					observability.ServerLogger.Debug("Evicted expired cache entries", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// reloadConfig applies selection rules from a fresh config load. Store,
// server, limiter and logging settings need a restart.
func reloadConfig(ctx context.Context, a *app) error {
	logger := observability.ServerLogger

	cfg, err := config.LoadFile(ctx, cfgFile)
	if err != nil {
		logger.Error("Failed to reload config", zap.Error(err))
		return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
	}

	selection, err := config.BuildSelectionConfig(cfg.Selection)
	if err != nil {
		return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
	}

	a.picker.SetConfig(selection)
	a.catalog.InvalidateOverrides()

	logger.Info("Configuration reloaded",
		zap.Int("anti_repeat_days", selection.AntiRepeatDays),
		zap.Int("priority_rules", len(selection.PriorityRules)),
		zap.Int("config_overrides", len(selection.Overrides)))
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host (overrides server.host)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port (overrides server.port)")
}
