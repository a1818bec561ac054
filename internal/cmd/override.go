package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dailypick/dailypick/internal/core"
	"github.com/dailypick/dailypick/internal/core/store"
	"github.com/dailypick/dailypick/internal/output"
)

var (
	overrideNote  string
	overrideForce bool
)

var overrideCmd = &cobra.Command{
	Use:     "override",
	Aliases: []string{"overrides"},
	Short:   "Pin candidates to specific dates",
	Long: `Stored overrides pin a candidate to a date and take precedence over
overrides in the config file.`,
}

var overrideSetCmd = &cobra.Command{
	Use:     "set <date> <candidate-id>",
	Short:   "Pin a candidate to a date",
	Example: `  dailypick override set 2025-12-25 cedar --note "holiday"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		id := strings.TrimSpace(args[1])
		if !overrideForce {
			if _, err := a.store.GetCandidate(ctx, id); err != nil {
				return fmt.Errorf("%w (use --force to pin an unknown id)", err)
			}
		}

		saved, err := a.store.SetOverride(ctx, core.Override{
			Date:        args[0],
			CandidateID: id,
			Note:        overrideNote,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s to %s\n", saved.CandidateID, saved.Date)
		return err
	},
}

var overrideListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		overrides, err := a.store.ListOverrides(ctx)
		if err != nil {
			return err
		}

		return writeOutput(cmd, "overrides", func(f output.Formatter) (string, error) {
			return f.FormatOverrides(overrides)
		})
	},
}

var overrideClearCmd = &cobra.Command{
	Use:   "clear <date>",
	Short: "Remove the override for a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		cleared, err := a.store.ClearOverride(ctx, args[0])
		if err != nil {
			return err
		}
		if !cleared {
			return fmt.Errorf("override %s: %w", args[0], store.ErrNotFound)
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared override for %s\n", args[0])
		return err
	},
}

func init() {
	overrideSetCmd.Flags().StringVar(&overrideNote, "note", "", "Free-form note")
	overrideSetCmd.Flags().BoolVar(&overrideForce, "force", false, "Allow an id that is not in the catalog")
	addOutputFlags(overrideListCmd)

	overrideCmd.AddCommand(overrideSetCmd, overrideListCmd, overrideClearCmd)
	rootCmd.AddCommand(overrideCmd)
}
