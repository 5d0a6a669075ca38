package cli

import (
	"github.com/spf13/cobra"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve channel settings, status, and simulations over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context(), serveAddress)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "addr", "", "Listen address (defaults to config)")
}
