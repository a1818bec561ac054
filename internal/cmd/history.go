package cmd

import "github.com/spf13/cobra"

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and reset recorded picks",
	Long: `Recorded picks drive the anti-repeat window: a candidate picked within
the window is skipped unless nothing else is eligible.`,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyResetCmd)
	rootCmd.AddCommand(historyCmd)
}
