package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/arttuliini/GPIO-Vasalli/internal/app"
)

var (
	simulateToday    bool
	simulateTomorrow bool
	simulateDate     string
	simulateOut      string
	simulateCSV      string
	simulatePNG      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a day of channel decisions from hourly prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateToday && simulateTomorrow {
			return errors.New("--today and --tomorrow are mutually exclusive")
		}

		a := getApp()
		date, err := a.SimulationDate(simulateDate, simulateTomorrow)
		if err != nil {
			return err
		}

		opts := app.SimulateOptions{
			Date:    date,
			OutPath: simulateOut,
			CSVPath: simulateCSV,
			PNGPath: simulatePNG,
		}
		return a.Simulate(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simulateToday, "today", false, "Simulate today (default)")
	simulateCmd.Flags().BoolVar(&simulateTomorrow, "tomorrow", false, "Simulate tomorrow")
	simulateCmd.Flags().StringVar(&simulateDate, "date", "", "Simulate a specific day (YYYY-MM-DD)")
	simulateCmd.Flags().StringVar(&simulateOut, "out", "", "Path to write the schedule table (defaults to config)")
	simulateCmd.Flags().StringVar(&simulateCSV, "csv", "", "Path to write the schedule as CSV")
	simulateCmd.Flags().StringVar(&simulatePNG, "png", "", "Path to write a PNG chart of the schedule")
}
