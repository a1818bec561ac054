package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/dailypick/dailypick/internal/core/store"
	"github.com/dailypick/dailypick/internal/output"
)

var (
	historyResetAll       bool
	historyResetDate      string
	historyResetPrefix    string
	historyResetCandidate string
	historyResetYes       bool
	historyResetDryRun    bool
)

var historyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete recorded picks",
	Long: `Delete recorded picks. Removing history re-admits candidates to the
anti-repeat window and changes later picks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := output.ParseFormat(flagValue(cmd, flagOutputFormat))
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		query := store.HistoryQuery{
			All:         historyResetAll,
			Date:        strings.TrimSpace(historyResetDate),
			Prefix:      strings.TrimSpace(historyResetPrefix),
			CandidateID: strings.TrimSpace(historyResetCandidate),
		}
		if err := query.Validate(); err != nil {
			return err
		}

		if query.All && !historyResetYes && !historyResetDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		matched, err := a.store.CountHistory(ctx, query)
		if err != nil {
			return err
		}

		if historyResetDryRun {
			return writeHistoryResetResult(format, cmd.OutOrStdout(), matched, 0, true)
		}

		deleted, err := a.store.ResetHistory(ctx, query)
		if err != nil {
			return err
		}
		a.catalog.InvalidateCandidates()

		return writeHistoryResetResult(format, cmd.OutOrStdout(), matched, deleted, false)
	},
}

func writeHistoryResetResult(format output.Format, w io.Writer, matched int, deleted int64, dryRun bool) error {
	result := map[string]any{
		"matched": matched,
		"deleted": deleted,
		"dry_run": dryRun,
	}

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	lines := []string{"Selection History", ""}
	if dryRun {
		lines = append(lines, fmt.Sprintf("Would delete %d recorded pick(s)", matched))
	} else {
		lines = append(lines, fmt.Sprintf("Deleted %d/%d recorded pick(s)", deleted, matched))
	}
	_, err := fmt.Fprint(w, ascii.DrawBox(strings.Join(lines, "\n"), 0))
	return err
}

func init() {
	historyResetCmd.Flags().BoolVar(&historyResetAll, "all", false, "Delete all recorded picks")
	historyResetCmd.Flags().StringVar(&historyResetDate, "date", "", "Delete the pick for one date")
	historyResetCmd.Flags().StringVar(&historyResetPrefix, "prefix", "", "Delete picks with a matching date prefix")
	historyResetCmd.Flags().StringVar(&historyResetCandidate, "candidate", "", "Delete picks of one candidate")
	historyResetCmd.Flags().BoolVar(&historyResetYes, "yes", false, "Confirm destructive reset")
	historyResetCmd.Flags().BoolVar(&historyResetDryRun, "dry-run", false, "Show what would be deleted")
	historyResetCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
}
