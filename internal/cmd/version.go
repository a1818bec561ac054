package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/dailypick/dailypick/internal/config"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information. --extended adds build, dependency and
store details resolved from the active configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !extended {
			_, err := fmt.Fprintf(out, "%s %s\n", config.AppName, versionInfo.Version)
			return err
		}

		// Config errors are reported inline; version must work without a
		// usable config.
		cfg, err := loadConfig(cmd.Context())
		return writeExtendedVersion(out, cfg, err)
	},
}

func writeExtendedVersion(w io.Writer, cfg *config.Config, cfgErr error) error {
	deps := crucible.GetVersion()
	lines := []string{
		fmt.Sprintf("%s %s", config.AppName, versionInfo.Version),
		"Commit: " + versionInfo.Commit,
		"Built: " + versionInfo.BuildDate,
		"Go: " + runtime.Version(),
		"Gofulmen: " + deps.Gofulmen,
		"Crucible: " + deps.Crucible,
		"",
	}

	switch {
	case cfgErr != nil:
		lines = append(lines, fmt.Sprintf("Config: unavailable (%v)", cfgErr))
	case cfg != nil:
		driver := cfg.Store.Driver
		if driver == "" {
			driver = "libsql"
		}
		lines = append(lines,
			fmt.Sprintf("Store: %s (%s)", storeLabel(cfg.Store), driver),
			fmt.Sprintf("Anti-repeat days: %d", cfg.Selection.AntiRepeatDays),
			fmt.Sprintf("Priority rules: %d", len(cfg.Selection.PriorityRules)),
			fmt.Sprintf("Record picks: %t", cfg.Selection.RecordPicks),
		)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show build, dependency and store details")
}
