package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arttuliini/GPIO-Vasalli/internal/service"
)

// ErrNoPrices means the feed has nothing for the requested day yet.
var ErrNoPrices = errors.New("no prices published for the requested day")

// Simulate plans the given day and writes the schedule table to out, to
// opts.OutPath (default paths.schedule_file) and optionally CSV and PNG.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions, out io.Writer) error {
	sched, err := a.simulate(ctx, opts.Date)
	if err != nil {
		return err
	}

	var table bytes.Buffer
	RenderSchedule(&table, sched, time.Now())
	if out != nil {
		if _, err := out.Write(table.Bytes()); err != nil {
			return err
		}
	}

	path := opts.OutPath
	if path == "" {
		path = a.Config.Paths.ScheduleFile
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, table.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write schedule %s: %w", path, err)
	}
	a.Logger.Info().Str("path", path).Msg("schedule table written")

	if opts.CSVPath != "" {
		if err := writeScheduleCSV(opts.CSVPath, sched); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("schedule csv written")
	}
	if opts.PNGPath != "" {
		if err := writeSchedulePNG(opts.PNGPath, sched); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("schedule chart written")
	}
	return nil
}

// SimulateDay runs the simulator without writing any output.
func (a *App) SimulateDay(ctx context.Context, date time.Time) (service.Schedule, error) {
	return a.simulate(ctx, date)
}

func (a *App) simulate(ctx context.Context, date time.Time) (service.Schedule, error) {
	sim, err := a.newSimulator()
	if err != nil {
		return service.Schedule{}, err
	}
	sched, err := sim.SimulateDay(ctx, date)
	if err != nil {
		return sched, err
	}
	if sched.Day.Len() == 0 {
		return sched, fmt.Errorf("%w: %s", ErrNoPrices, sched.Day.Date().Format(time.DateOnly))
	}
	return sched, nil
}

// ResolveDate picks the simulated day from the command flags. An explicit
// date wins over tomorrow, which wins over today.
func ResolveDate(now time.Time, loc *time.Location, date string, tomorrow bool) (time.Time, error) {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	switch {
	case date != "":
		d, err := time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
		}
		return d, nil
	case tomorrow:
		return today.AddDate(0, 0, 1), nil
	}
	return today, nil
}

// SimulationDate resolves the simulate command's date flags in the configured timezone.
func (a *App) SimulationDate(date string, tomorrow bool) (time.Time, error) {
	loc, err := a.location()
	if err != nil {
		return time.Time{}, err
	}
	return ResolveDate(time.Now(), loc, date, tomorrow)
}
