package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailypick/dailypick/internal/core"
	errwrap "github.com/dailypick/dailypick/internal/errors"
	"github.com/dailypick/dailypick/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check: version info, configuration, store connectivity and catalog size.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		if logger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("✅ Version information available")

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		cfg, err := loadConfig(ctx)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("✅ Configuration loaded")

		a, err := newApp(ctx, cfg)
		if err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Store unavailable", err)
			return
		}
		defer func() { _ = a.Close() }()

		if err := a.store.CheckHealth(ctx); err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Store unavailable", err)
			return
		}
		logger.Info("✅ Store reachable", zap.String("store", storeLabel(cfg.Store)))

		candidates, err := a.catalog.ListCandidates(ctx, core.CandidateQuery{})
		if err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Catalog unavailable", err)
			return
		}
		if len(candidates) == 0 {
			logger.Warn("⚠️  Catalog is empty; daily picks will be none")
		} else {
			logger.Info("✅ Catalog loaded", zap.Int("candidates", len(candidates)))
		}

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
