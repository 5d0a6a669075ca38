package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
)

// ListChannels prints the configured channels. Invalid records are reported
// without hiding the valid ones.
func (a *App) ListChannels(out io.Writer, mode channel.Mode) error {
	file := a.settings()
	cfgs, err := file.Channels(mode, func(cfg channel.Config, note string) {
		fmt.Fprintf(out, "warning: channel %d: %s\n", cfg.Number, note)
	})
	if err != nil {
		fmt.Fprintf(out, "warning: %v\n", err)
	}
	if len(cfgs) == 0 {
		fmt.Fprintf(out, "no channels configured in %s\n", file.Path())
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pin\tIdentifier\tLower (c/kWh)\tUpper (c/kWh)\tCheapest N")
	for _, cfg := range cfgs {
		fmt.Fprintf(writer, "%d\t%s\t%d\t%d\t%d\n", cfg.Number, cfg.Identifier, cfg.Lower, cfg.Upper, cfg.RankN)
	}
	return writer.Flush()
}

// SetChannel adds or replaces a channel in the settings file.
func (a *App) SetChannel(cfg channel.Config) error {
	if cfg.Identifier == "" {
		cfg.Identifier = channel.DefaultIdentifier(cfg.Number)
	}
	if err := a.settings().Upsert(cfg); err != nil {
		return err
	}
	a.Logger.Info().Int("channel", cfg.Number).Str("identifier", cfg.Identifier).Msg("channel saved")
	return nil
}

// DeleteChannel removes a channel from the settings file.
func (a *App) DeleteChannel(number int) error {
	removed, err := a.settings().Delete(number)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("channel %d is not configured", number)
	}
	a.Logger.Info().Int("channel", number).Msg("channel deleted")
	return nil
}
