package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/decision"
	"github.com/arttuliini/GPIO-Vasalli/internal/fetcher"
	"github.com/arttuliini/GPIO-Vasalli/internal/price"
)

// Schedule is the simulated ON/OFF plan of a day.
type Schedule struct {
	RunID     string
	Day       price.Day
	Channels  []channel.Config
	Decisions map[int][]decision.Decision
	Notes     []string
}

// Decision returns the decision of channel number at hour.
func (s Schedule) Decision(number, hour int) (decision.Decision, bool) {
	hours, ok := s.Decisions[number]
	if !ok || hour < 0 || hour >= len(hours) {
		return decision.Decision{}, false
	}
	return hours[hour], true
}

// OnHours counts the hours channel number is ON.
func (s Schedule) OnHours(number int) int {
	n := 0
	for _, d := range s.Decisions[number] {
		if d.State.Active() {
			n++
		}
	}
	return n
}

// Simulator replays the decision rules over a day of fetched prices.
type Simulator struct {
	prices      fetcher.DayPriceFetcher
	channels    ChannelSource
	concurrency int
	logger      zerolog.Logger
}

// NewSimulator constructs a Simulator.
func NewSimulator(prices fetcher.DayPriceFetcher, channels ChannelSource, concurrency int, logger zerolog.Logger) *Simulator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Simulator{
		prices:      prices,
		channels:    channels,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "simulator").Logger(),
	}
}

// SimulateDay fetches date's prices and decides every channel for every hour.
func (s *Simulator) SimulateDay(ctx context.Context, date time.Time) (Schedule, error) {
	sched := Schedule{RunID: uuid.NewString()}
	logger := s.logger.With().Str("run_id", sched.RunID).Str("date", date.Format(time.DateOnly)).Logger()

	cfgs, err := s.channels.Channels(channel.ModeSimulation, func(cfg channel.Config, note string) {
		sched.Notes = append(sched.Notes, fmt.Sprintf("channel %d: %s", cfg.Number, note))
		logger.Warn().Int("channel", cfg.Number).Msg(note)
	})
	if err != nil {
		var verr *channel.ValidationError
		if !errors.As(err, &verr) {
			return sched, fmt.Errorf("load channels: %w", err)
		}
		logger.Error().Err(err).Msg("skipping invalid channel records")
		sched.Notes = append(sched.Notes, err.Error())
	}
	sched.Channels = cfgs

	day, err := s.prices.FetchDay(ctx, date)
	if err != nil {
		return sched, fmt.Errorf("fetch prices: %w", err)
	}
	sched.Day = day

	if missing := day.Missing(); len(missing) > 0 {
		logger.Warn().Ints("hours", missing).Msg("hours without price data")
		sched.Notes = append(sched.Notes, fmt.Sprintf("%d hours without price data", len(missing)))
	}

	oracle := decision.NewLocalOracle(day)
	for _, n := range distinctRankCounts(cfgs) {
		if r := oracle.Ranking(n); r.Degraded() {
			note := fmt.Sprintf("N=%d requested but only %d priced hours available", r.Requested, r.Effective)
			logger.Info().Int("requested", r.Requested).Int("effective", r.Effective).Msg("ranking degraded")
			sched.Notes = append(sched.Notes, note)
		}
	}

	engine := decision.NewEngine(sched.RunID, s.logger)
	results := make([][]decision.Decision, len(cfgs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, cfg := range cfgs {
		g.Go(func() error {
			results[i] = engine.DecideDay(ctx, oracle, []channel.Config{cfg}, day)[cfg.Number]
			return nil
		})
	}
	// The group only bounds concurrency; DecideDay has no error to report.
	g.Wait()

	sched.Decisions = make(map[int][]decision.Decision, len(cfgs))
	for i, cfg := range cfgs {
		sched.Decisions[cfg.Number] = results[i]
	}

	logger.Info().Int("channels", len(cfgs)).Int("priced_hours", day.Len()).Msg("simulation complete")
	return sched, nil
}

func distinctRankCounts(cfgs []channel.Config) []int {
	seen := make(map[int]bool)
	var out []int
	for _, cfg := range cfgs {
		if cfg.RankN > 0 && !seen[cfg.RankN] {
			seen[cfg.RankN] = true
			out = append(out, cfg.RankN)
		}
	}
	sort.Ints(out)
	return out
}
