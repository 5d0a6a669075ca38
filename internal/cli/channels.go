package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
)

var (
	channelsSimulation bool

	setPin        int
	setIdentifier string
	setLower      int
	setUpper      int
	setRankN      int
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Manage channel settings",
}

var channelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := channel.ModeLive
		if channelsSimulation {
			mode = channel.ModeSimulation
		}
		return getApp().ListChannels(cmd.OutOrStdout(), mode)
	},
}

var channelsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Add or replace a channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("pin") {
			return fmt.Errorf("--pin is required")
		}
		cfg := channel.Config{
			Number:     setPin,
			Identifier: setIdentifier,
			Lower:      setLower,
			Upper:      setUpper,
			RankN:      setRankN,
		}
		return getApp().SetChannel(cfg)
	},
}

var channelsDeleteCmd = &cobra.Command{
	Use:   "delete <pin>",
	Short: "Remove a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pin %q: %w", args[0], err)
		}
		return getApp().DeleteChannel(number)
	},
}

func init() {
	channelsListCmd.Flags().BoolVar(&channelsSimulation, "simulation", false, "Validate with simulation rules")

	channelsSetCmd.Flags().IntVar(&setPin, "pin", 0, "GPIO channel number")
	channelsSetCmd.Flags().StringVar(&setIdentifier, "identifier", "", "Human-readable channel name")
	channelsSetCmd.Flags().IntVar(&setLower, "lower", 0, "Lower price limit (c/kWh)")
	channelsSetCmd.Flags().IntVar(&setUpper, "upper", 0, "Upper price limit (c/kWh)")
	channelsSetCmd.Flags().IntVar(&setRankN, "n", 0, "Number of cheapest hours to allow within limits (0 disables)")

	channelsCmd.AddCommand(channelsListCmd, channelsSetCmd, channelsDeleteCmd)
}
