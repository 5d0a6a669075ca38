package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/arttuliini/GPIO-Vasalli/internal/actuator"
	"github.com/arttuliini/GPIO-Vasalli/internal/alerting"
	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/config"
	"github.com/arttuliini/GPIO-Vasalli/internal/fetcher"
	"github.com/arttuliini/GPIO-Vasalli/internal/price"
	"github.com/arttuliini/GPIO-Vasalli/internal/scheduler"
	"github.com/arttuliini/GPIO-Vasalli/internal/service"
	"github.com/arttuliini/GPIO-Vasalli/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) location() (*time.Location, error) {
	return a.Config.Location.Load()
}

func (a *App) settings() *channel.File {
	return channel.NewFile(a.Config.Paths.SettingsFile)
}

func (a *App) newOracle() *fetcher.SpotHinta {
	return fetcher.NewSpotHinta(fetcher.SpotHintaOptions{
		BaseURL:   a.Config.SpotHinta.BaseURL,
		Timeout:   a.Config.SpotHinta.RequestTimeout,
		UserAgent: a.Config.SpotHinta.UserAgent,
	}, a.Logger)
}

func (a *App) newSimulator() (*service.Simulator, error) {
	loc, err := a.location()
	if err != nil {
		return nil, err
	}
	unit, err := price.ParseUnit(a.Config.Sahkotin.Unit)
	if err != nil {
		return nil, fmt.Errorf("sahkotin.unit: %w", err)
	}
	feed := fetcher.NewSahkotin(fetcher.SahkotinOptions{
		BaseURL:   a.Config.Sahkotin.BaseURL,
		Unit:      unit,
		Location:  loc,
		Timeout:   a.Config.Sahkotin.RequestTimeout,
		UserAgent: a.Config.Sahkotin.UserAgent,
	}, a.Logger)
	return service.NewSimulator(feed, a.settings(), a.Config.Live.Concurrency, a.Logger), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newService wires the live evaluator. The returned closer releases the
// output driver and the database pool.
func (a *App) newService(ctx context.Context, sched *scheduler.Scheduler) (*service.Service, func(), error) {
	loc, err := a.location()
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; decision history stays in the CSV file")
	}

	sw, err := actuator.New(a.Config.Output, a.Logger)
	if err != nil {
		if closeStore != nil {
			closeStore()
		}
		return nil, nil, err
	}

	opts := service.Options{
		Scheduler:   sched,
		Channels:    a.settings(),
		Oracle:      a.newOracle(),
		Switch:      sw,
		Status:      storage.NewStatusFile(a.Config.Paths.StatusFile),
		History:     storage.NewCSVHistory(a.Config.Paths.HistoryFile),
		Notifier:    a.newNotifier(),
		Location:    loc,
		Concurrency: a.Config.Live.Concurrency,
		LockKey:     a.Config.Scheduler.AdvisoryLockKey,
	}
	if store != nil {
		opts.Store = store
	}

	closer := func() {
		if err := sw.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close output driver")
		}
		if closeStore != nil {
			closeStore()
		}
	}
	return service.New(opts, a.Logger), closer, nil
}

// Evaluate runs one live evaluation for the current hour.
func (a *App) Evaluate(ctx context.Context) error {
	svc, closer, err := a.newService(ctx, nil)
	if err != nil {
		return err
	}
	defer closer()

	res, err := svc.ProcessHour(ctx, time.Now())
	if err != nil {
		return err
	}
	if res.Skipped {
		a.Logger.Info().Msg("another instance holds the evaluation lock")
		return nil
	}
	a.Logger.Info().Str("run_id", res.RunID).Int("channels", len(res.Decisions)).Int("changes", len(res.Changes)).Msg("evaluation complete")
	return nil
}

// Run executes the long-running hourly evaluator.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loc, err := a.location()
	if err != nil {
		return err
	}
	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
		Location:     loc,
	}, a.Logger)

	svc, closer, err := a.newService(ctx, sched)
	if err != nil {
		return err
	}
	defer closer()

	a.Logger.Info().Str("driver", a.Config.Output.Driver).Msg("starting hourly evaluator")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("hourly evaluator stopped")
	return nil
}

// SimulateOptions configure the simulate command.
type SimulateOptions struct {
	Date    time.Time
	OutPath string
	CSVPath string
	PNGPath string
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit int
}
