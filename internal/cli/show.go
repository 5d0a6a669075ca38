package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arttuliini/GPIO-Vasalli/internal/app"
)

var (
	historyLimit     int
	historyRetention time.Duration
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the last written channel states",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.OutOrStdout())
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display recent decisions from the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.HistoryOptions{
			Limit: historyLimit,
		}
		return getApp().History(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored decisions older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyRetention <= 0 {
			return fmt.Errorf("--retention must be greater than zero")
		}
		return getApp().Prune(cmd.Context(), historyRetention)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of decisions to display")
	pruneCmd.Flags().DurationVar(&historyRetention, "retention", 30*24*time.Hour, "Keep decisions newer than this")
	historyCmd.AddCommand(pruneCmd)
}
