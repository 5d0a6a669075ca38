package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/price"
)

// Engine applies the decision rules. It holds no mutable state, so one
// Engine may decide many channels concurrently.
type Engine struct {
	runID  string
	logger zerolog.Logger
}

// NewEngine tags every decision with runID.
func NewEngine(runID string, logger zerolog.Logger) *Engine {
	return &Engine{runID: runID, logger: logger.With().Str("component", "decision").Str("run_id", runID).Logger()}
}

// RunID returns the tag applied to decisions.
func (e *Engine) RunID() string {
	return e.runID
}

// Decide evaluates cfg for hour. Missing data and oracle failures resolve to
// a non-ON state; Decide never fails.
func (e *Engine) Decide(ctx context.Context, oracle Oracle, cfg channel.Config, hour time.Time) Decision {
	d := Decision{
		RunID:      e.runID,
		Channel:    cfg.Number,
		Identifier: cfg.Identifier,
		Hour:       hour,
		Lower:      cfg.Lower,
		Upper:      cfg.Upper,
		RankN:      cfg.RankN,
	}

	class, p, err := oracle.Classify(ctx, cfg, hour)
	if err != nil {
		d.State = StateUnknown
		d.Reason = ReasonUnavailable
		if errors.Is(err, ErrNoPrice) {
			d.Reason = ReasonNoPrice
		}
		d.Detail = err.Error()
		e.logger.Warn().Err(err).Int("channel", cfg.Number).Time("hour", hour).Str("reason", string(d.Reason)).Msg("price unavailable")
		return d
	}
	d.Class = &class
	d.Price = p

	switch class {
	case price.ClassAbove:
		d.State, d.Reason = StateOff, ReasonAboveUpper
	case price.ClassBelow:
		d.State, d.Reason = StateOn, ReasonAtOrBelowLower
	case price.ClassWithin:
		e.decideWithin(ctx, oracle, cfg, hour, &d)
	default:
		d.State, d.Reason = StateUnknown, ReasonUnavailable
		d.Detail = class.String()
	}

	e.logger.Debug().
		Int("channel", cfg.Number).
		Time("hour", hour).
		Str("state", d.State.String()).
		Str("reason", string(d.Reason)).
		Msg("decided")
	return d
}

func (e *Engine) decideWithin(ctx context.Context, oracle Oracle, cfg channel.Config, hour time.Time, d *Decision) {
	if cfg.RankN <= 0 {
		d.State, d.Reason = StateOff, ReasonRankingDisabled
		return
	}

	cheapest, err := oracle.IsCheapest(ctx, hour, cfg.RankN)
	if err != nil {
		d.State, d.Reason = StateOff, ReasonRankingFailed
		d.Detail = err.Error()
		e.logger.Warn().Err(err).Int("channel", cfg.Number).Int("rank_n", cfg.RankN).Msg("ranking lookup failed")
		return
	}
	if cheapest {
		d.State, d.Reason = StateOn, ReasonWithinCheapest
		return
	}
	d.State, d.Reason = StateOff, ReasonWithinNotCheapest
}

// DecideDay evaluates every channel for every hour of day, keyed by channel
// number.
func (e *Engine) DecideDay(ctx context.Context, oracle Oracle, cfgs []channel.Config, day price.Day) map[int][]Decision {
	out := make(map[int][]Decision, len(cfgs))
	for _, cfg := range cfgs {
		hours := make([]Decision, 0, price.HoursPerDay)
		for h := 0; h < price.HoursPerDay; h++ {
			at, ok := day.At(h)
			if !ok {
				hours = append(hours, e.nonexistentHour(cfg, at, h))
				continue
			}
			hours = append(hours, e.Decide(ctx, oracle, cfg, at))
		}
		out[cfg.Number] = hours
	}
	return out
}

// nonexistentHour decides an hour the local clock skips. The oracle is not
// asked because hour would resolve to the following hour's price.
func (e *Engine) nonexistentHour(cfg channel.Config, at time.Time, hour int) Decision {
	return Decision{
		RunID:      e.runID,
		Channel:    cfg.Number,
		Identifier: cfg.Identifier,
		Hour:       at,
		State:      StateUnknown,
		Reason:     ReasonNoPrice,
		Detail:     fmt.Sprintf("hour %02d does not exist on %s", hour, at.Format(time.DateOnly)),
		Lower:      cfg.Lower,
		Upper:      cfg.Upper,
		RankN:      cfg.RankN,
	}
}
