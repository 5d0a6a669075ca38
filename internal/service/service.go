package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arttuliini/GPIO-Vasalli/internal/actuator"
	"github.com/arttuliini/GPIO-Vasalli/internal/alerting"
	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/decision"
	"github.com/arttuliini/GPIO-Vasalli/internal/fetcher"
	"github.com/arttuliini/GPIO-Vasalli/internal/scheduler"
	"github.com/arttuliini/GPIO-Vasalli/internal/storage"
)

// ModeLive tags persisted live decisions.
const ModeLive = "live"

// ChannelSource yields validated channel configurations.
type ChannelSource interface {
	Channels(mode channel.Mode, onNote func(channel.Config, string)) ([]channel.Config, error)
}

// Options wires the live evaluator. Nil collaborators are skipped.
type Options struct {
	Scheduler   *scheduler.Scheduler
	Channels    ChannelSource
	Oracle      fetcher.ClassificationOracle
	Switch      actuator.Switch
	Status      *storage.StatusFile
	History     *storage.CSVHistory
	Store       storage.DecisionStore
	Notifier    alerting.Notifier
	Location    *time.Location
	Concurrency int
	LockKey     int64
}

// Service orchestrates live evaluation, actuation, persistence, and alerting.
type Service struct {
	scheduler   *scheduler.Scheduler
	channels    ChannelSource
	oracle      decision.Oracle
	sw          actuator.Switch
	status      *storage.StatusFile
	history     *storage.CSVHistory
	store       storage.DecisionStore
	notifier    alerting.Notifier
	loc         *time.Location
	concurrency int
	locker      storage.AdvisoryLocker
	lockKey     int64
	logger      zerolog.Logger

	newRunID func() string
	now      func() time.Time
}

// RunResult summarises one evaluation run.
type RunResult struct {
	RunID     string
	Hour      time.Time
	Decisions []decision.Decision
	Changes   []storage.Change
	Skipped   bool
}

// New constructs the live evaluation service.
func New(opts Options, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := opts.Store.(storage.AdvisoryLocker); ok {
		locker = l
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var oracle decision.Oracle
	if opts.Oracle != nil {
		oracle = decision.NewRemoteOracle(opts.Oracle)
	}

	return &Service{
		scheduler:   opts.Scheduler,
		channels:    opts.Channels,
		oracle:      oracle,
		sw:          opts.Switch,
		status:      opts.Status,
		history:     opts.History,
		store:       opts.Store,
		notifier:    opts.Notifier,
		loc:         loc,
		concurrency: concurrency,
		locker:      locker,
		lockKey:     opts.LockKey,
		logger:      logger.With().Str("component", "service").Logger(),
		newRunID:    uuid.NewString,
		now:         time.Now,
	}
}

// Run begins the aligned hourly loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		_, err := s.ProcessHour(ctx, bucket)
		return err
	})
}

// ProcessHour evaluates every configured channel for hour. Per-channel
// failures are folded into decisions; only setup failures return an error.
func (s *Service) ProcessHour(ctx context.Context, hour time.Time) (RunResult, error) {
	hour = hour.In(s.loc).Truncate(time.Hour)
	result := RunResult{Hour: hour}

	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return result, err
	}
	if !proceed {
		s.logger.Debug().Time("hour", hour).Msg("skip hour because advisory lock held elsewhere")
		result.Skipped = true
		return result, nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeHour(ctx, hour)
}

func (s *Service) executeHour(ctx context.Context, hour time.Time) (RunResult, error) {
	if s.channels == nil || s.oracle == nil {
		return RunResult{Hour: hour}, fmt.Errorf("channels and oracle must be configured")
	}

	runID := s.newRunID()
	started := s.now().In(s.loc)
	result := RunResult{RunID: runID, Hour: hour}
	logger := s.logger.With().Str("run_id", runID).Time("hour", hour).Logger()

	cfgs, err := s.channels.Channels(channel.ModeLive, func(cfg channel.Config, note string) {
		logger.Warn().Int("channel", cfg.Number).Msg(note)
	})
	if err != nil {
		var verr *channel.ValidationError
		if !errors.As(err, &verr) {
			return result, fmt.Errorf("load channels: %w", err)
		}
		logger.Error().Err(err).Msg("skipping invalid channel records")
	}
	if len(cfgs) == 0 {
		logger.Warn().Msg("no valid channels configured")
		return result, nil
	}

	result.Decisions = s.decideAll(ctx, decision.NewEngine(runID, s.logger), cfgs, hour)

	for _, d := range result.Decisions {
		logger.Info().
			Int("channel", d.Channel).
			Str("identifier", d.Identifier).
			Str("state", d.State.String()).
			Str("reason", d.Message()).
			Msg("channel decided")
		if s.sw == nil {
			continue
		}
		if err := actuator.Apply(ctx, s.sw, d); err != nil {
			logger.Error().Err(err).Int("channel", d.Channel).Msg("failed to set output")
		}
	}

	result.Changes = s.persist(ctx, logger, started, result.Decisions)
	s.notify(ctx, logger, runID, started, result.Changes)
	return result, nil
}

// decideAll evaluates channels concurrently and returns decisions in cfgs order.
func (s *Service) decideAll(ctx context.Context, engine *decision.Engine, cfgs []channel.Config, hour time.Time) []decision.Decision {
	decisions := make([]decision.Decision, len(cfgs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, cfg := range cfgs {
		g.Go(func() error {
			decisions[i] = engine.Decide(ctx, s.oracle, cfg, hour)
			return nil
		})
	}
	// Decide folds every failure into the decision, so Wait is always nil.
	g.Wait()
	return decisions
}

func (s *Service) persist(ctx context.Context, logger zerolog.Logger, started time.Time, decisions []decision.Decision) []storage.Change {
	next := storage.NewStatus(decisions, started)

	var changes []storage.Change
	if s.status != nil {
		prev, err := s.status.Read()
		if err != nil {
			logger.Error().Err(err).Msg("failed to read previous status")
			prev = storage.Status{}
		}
		changes = storage.Diff(prev, next)
		if err := s.status.Write(next); err != nil {
			logger.Error().Err(err).Str("path", s.status.Path()).Msg("failed to write status file")
		}
	}

	if s.history != nil {
		if err := s.history.Append(started, decisions); err != nil {
			logger.Error().Err(err).Msg("failed to append history")
		}
	}

	if s.store != nil {
		records := make([]storage.DecisionRecord, 0, len(decisions))
		for _, d := range decisions {
			records = append(records, storage.NewDecisionRecord(d, ModeLive))
		}
		if err := s.store.InsertDecisions(ctx, records); err != nil {
			logger.Error().Err(err).Msg("failed to persist decisions")
		}
	}
	return changes
}

func (s *Service) notify(ctx context.Context, logger zerolog.Logger, runID string, started time.Time, changes []storage.Change) {
	if s.notifier == nil || len(changes) == 0 {
		return
	}
	note := alerting.Notification{RunID: runID, RunStart: started, Location: s.loc}
	for _, c := range changes {
		note.Changes = append(note.Changes, alerting.StateChange{
			Identifier: c.Identifier,
			Pin:        c.Pin,
			From:       c.From,
			To:         c.To,
			Reason:     c.Reason,
		})
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		logger.Error().Err(err).Msg("failed to dispatch state change notification")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
