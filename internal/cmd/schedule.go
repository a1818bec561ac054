package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dailypick/dailypick/internal/core"
	"github.com/dailypick/dailypick/internal/core/engine"
	"github.com/dailypick/dailypick/internal/metrics"
	"github.com/dailypick/dailypick/internal/output"
)

var (
	scheduleFrom string
	scheduleDays int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Preview upcoming picks",
	Long: `Preview picks for consecutive days. Each previewed pick counts as
selected for the days after it, so the anti-repeat window applies inside the
preview. Nothing is recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		from, err := parseDateFlag(scheduleFrom, time.Now())
		if err != nil {
			return err
		}
		if scheduleDays < 1 || scheduleDays > engine.MaxScheduleDays {
			return fmt.Errorf("--days must be between 1 and %d", engine.MaxScheduleDays)
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		results, err := a.picker.Schedule(ctx, from, scheduleDays)
		metrics.RecordOperation("schedule", err == nil)
		if err != nil {
			return err
		}

		name := fmt.Sprintf("schedule.%s.%dd", core.FormatDate(from), scheduleDays)
		return writeOutput(cmd, name, func(f output.Formatter) (string, error) {
			return f.FormatSchedule(results)
		})
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleFrom, "from", "", "First date (YYYY-MM-DD, default today)")
	scheduleCmd.Flags().IntVar(&scheduleDays, "days", 7, "Number of days to preview")
	addOutputFlags(scheduleCmd)
}
