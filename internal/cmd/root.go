package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailypick/dailypick/internal/config"
	"github.com/dailypick/dailypick/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Deterministic daily pick from a curated catalog",
	Long: `dailypick selects one catalog item per calendar day. The pick is a pure
function of the date, the catalog, the selection history and the configured
rules, so every replica agrees on it.

Use the subcommands to serve the HTTP API, preview picks or manage the catalog.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", config.AppName))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

func initLogging() {
	observability.InitCLILogger(config.AppName, verbose)
}

// loadConfig loads configuration from --config (or the default locations)
// with optional runtime overrides on top.
func loadConfig(ctx context.Context, overrides ...map[string]any) (*config.Config, error) {
	cfg, err := config.LoadFile(ctx, cfgFile, overrides...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if observability.CLILogger != nil {
		observability.CLILogger.Debug("Configuration loaded",
			zap.String("store", storeLabel(cfg.Store)),
			zap.Int("anti_repeat_days", cfg.Selection.AntiRepeatDays),
			zap.Int("priority_rules", len(cfg.Selection.PriorityRules)))
	}
	return cfg, nil
}

func storeLabel(cfg config.StoreConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return cfg.Path
}
