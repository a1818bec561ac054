package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailypick/dailypick/internal/core"
	"github.com/dailypick/dailypick/internal/metrics"
	"github.com/dailypick/dailypick/internal/observability"
	"github.com/dailypick/dailypick/internal/output"
)

var (
	pickDate   string
	pickRecord bool
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Show the pick for a date",
	Long: `Show the pick for a date (default today, UTC).

With --record the pick is stored as selection history, which feeds the
anti-repeat window of later days.`,
	Example: `  dailypick pick
  dailypick pick --date 2025-12-25 --output-format json
  dailypick pick --record`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		target, err := parseDateFlag(pickDate, time.Now())
		if err != nil {
			return err
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		var result core.SelectionResult
		if pickRecord {
			result, err = a.picker.PickAndRecord(ctx, target)
		} else {
			result, err = a.picker.Pick(ctx, target)
		}
		metrics.RecordOperation("pick", err == nil)
		if err != nil {
			return err
		}

		observability.CLILogger.Debug("Selection computed",
			zap.String("date", result.Date),
			zap.String("path", string(result.Path)),
			zap.Int("pool_size", result.PoolSize),
			zap.Bool("recorded", pickRecord && result.Candidate != nil))

		return writeOutput(cmd, "pick."+result.Date, func(f output.Formatter) (string, error) {
			return f.FormatSelection(result)
		})
	},
}

// parseDateFlag parses a YYYY-MM-DD flag value, defaulting to now's UTC date.
func parseDateFlag(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "today") {
		return core.TruncateDay(now), nil
	}
	parsed, err := core.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return parsed, nil
}

func init() {
	rootCmd.AddCommand(pickCmd)
	pickCmd.Flags().StringVar(&pickDate, "date", "", "Date to pick for (YYYY-MM-DD, default today)")
	pickCmd.Flags().BoolVar(&pickRecord, "record", false, "Record the pick as selection history")
	addOutputFlags(pickCmd)
}
