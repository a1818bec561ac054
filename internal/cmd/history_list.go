package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dailypick/dailypick/internal/core/store"
	"github.com/dailypick/dailypick/internal/output"
)

var (
	historyListPrefix    string
	historyListCandidate string
)

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded picks, newest first",
	Example: `  dailypick history list
  dailypick history list --prefix 2025-03
  dailypick history list --candidate cedar --output-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		query := store.HistoryQuery{
			Prefix:      strings.TrimSpace(historyListPrefix),
			CandidateID: strings.TrimSpace(historyListCandidate),
		}
		if query.Prefix == "" && query.CandidateID == "" {
			query.All = true
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		entries, err := a.store.ListHistory(ctx, query)
		if err != nil {
			return err
		}

		return writeOutput(cmd, "history.list", func(f output.Formatter) (string, error) {
			return f.FormatHistory(entries)
		})
	},
}

func init() {
	historyListCmd.Flags().StringVar(&historyListPrefix, "prefix", "", "Only dates with this prefix (e.g. 2025-03)")
	historyListCmd.Flags().StringVar(&historyListCandidate, "candidate", "", "Only picks of this candidate")
	addOutputFlags(historyListCmd)
}
