package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/price"
	"github.com/arttuliini/GPIO-Vasalli/internal/ranking"
)

var (
	// ErrNoPrice means the hour has no price sample.
	ErrNoPrice = errors.New("no price for hour")
	// ErrUnavailable means the oracle could not give a usable answer.
	ErrUnavailable = errors.New("oracle unavailable")
)

// Oracle answers the two questions the engine asks about an hour. The
// returned price is nil when the oracle only knows the class.
type Oracle interface {
	Classify(ctx context.Context, cfg channel.Config, hour time.Time) (price.Class, *decimal.Decimal, error)
	IsCheapest(ctx context.Context, hour time.Time, n int) (bool, error)
}

// Lookup is a remote service that only answers for the current hour.
type Lookup interface {
	Classify(ctx context.Context, lower, upper int) (price.Class, error)
	IsCheapestHour(ctx context.Context, n int) (bool, error)
}

// LocalOracle answers from a day of known prices.
type LocalOracle struct {
	day   price.Day
	cache *ranking.Cache
}

var _ Oracle = (*LocalOracle)(nil)

// NewLocalOracle ranks day lazily; rankings are shared across channels.
func NewLocalOracle(day price.Day) *LocalOracle {
	return &LocalOracle{day: day, cache: ranking.NewCache(day.Prices())}
}

// Day returns the prices the oracle answers from.
func (o *LocalOracle) Day() price.Day {
	return o.day
}

// Ranking exposes the cached ranking for n.
func (o *LocalOracle) Ranking(n int) ranking.Result {
	return o.cache.Get(n)
}

// Classify looks up the hour's price and classifies it against cfg.
func (o *LocalOracle) Classify(_ context.Context, cfg channel.Config, hour time.Time) (price.Class, *decimal.Decimal, error) {
	h, ok := o.day.HourOf(hour)
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s is outside %s", ErrNoPrice, hour.Format(time.RFC3339), o.day.Date().Format(time.DateOnly))
	}
	p, ok := o.day.Price(h)
	if !ok {
		return 0, nil, fmt.Errorf("%w: hour %02d", ErrNoPrice, h)
	}
	return price.Classify(p, cfg.Lower, cfg.Upper), &p, nil
}

// IsCheapest reports whether hour belongs to the day's n cheapest hours.
func (o *LocalOracle) IsCheapest(_ context.Context, hour time.Time, n int) (bool, error) {
	h, ok := o.day.HourOf(hour)
	if !ok {
		return false, fmt.Errorf("%w: %s is outside %s", ErrNoPrice, hour.Format(time.RFC3339), o.day.Date().Format(time.DateOnly))
	}
	return o.cache.Get(n).Set.Contains(h), nil
}

// RemoteOracle delegates to a Lookup. The hour argument is ignored because the
// remote service only knows the current hour.
type RemoteOracle struct {
	lookup Lookup
}

var _ Oracle = (*RemoteOracle)(nil)

// NewRemoteOracle wraps lookup.
func NewRemoteOracle(lookup Lookup) *RemoteOracle {
	return &RemoteOracle{lookup: lookup}
}

// Classify asks the remote service for the class of the current price.
func (o *RemoteOracle) Classify(ctx context.Context, cfg channel.Config, _ time.Time) (price.Class, *decimal.Decimal, error) {
	class, err := o.lookup.Classify(ctx, cfg.Lower, cfg.Upper)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return class, nil, nil
}

// IsCheapest asks whether the current hour is among today's n cheapest.
func (o *RemoteOracle) IsCheapest(ctx context.Context, _ time.Time, n int) (bool, error) {
	ok, err := o.lookup.IsCheapestHour(ctx, n)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return ok, nil
}
