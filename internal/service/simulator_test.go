package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/decision"
	"github.com/arttuliini/GPIO-Vasalli/internal/price"
)

type fixedDay struct {
	values map[int]int64
	err    error
}

func (f fixedDay) FetchDay(_ context.Context, date time.Time) (price.Day, error) {
	if f.err != nil {
		return price.Day{}, f.err
	}
	samples := make([]price.Sample, 0, len(f.values))
	for h, v := range f.values {
		samples = append(samples, price.Sample{Hour: h, Value: decimal.NewFromInt(v)})
	}
	return price.NewDay(date, samples, price.UnitCentsPerKWh)
}

func TestSimulateDay(t *testing.T) {
	cfgs := []channel.Config{
		{Number: 17, Identifier: "boiler", Lower: 5, Upper: 15, RankN: 2},
		{Number: 27, Identifier: "heater", Lower: 5, Upper: 15, RankN: 10},
	}
	sim := NewSimulator(fixedDay{values: map[int]int64{0: 20, 1: 10, 2: 4, 3: 12}}, staticChannels{cfgs: cfgs}, 2, zerolog.Nop())

	sched, err := sim.SimulateDay(context.Background(), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotEmpty(t, sched.RunID)
	require.Len(t, sched.Decisions, 2)

	wantBoiler := []decision.State{decision.StateOff, decision.StateOn, decision.StateOn, decision.StateOff}
	for h, want := range wantBoiler {
		d, ok := sched.Decision(17, h)
		require.True(t, ok)
		assert.Equal(t, want, d.State, "boiler hour %d", h)
	}
	d, ok := sched.Decision(17, 10)
	require.True(t, ok)
	assert.Equal(t, decision.StateUnknown, d.State)

	assert.Equal(t, 2, sched.OnHours(17))
	assert.Equal(t, 3, sched.OnHours(27), "N larger than priced hours uses all of them")

	assert.Contains(t, sched.Notes, "20 hours without price data")
	assert.Contains(t, sched.Notes, "N=10 requested but only 4 priced hours available")

	_, ok = sched.Decision(99, 0)
	assert.False(t, ok)
}

func TestSimulateDayFetchError(t *testing.T) {
	sim := NewSimulator(fixedDay{err: errors.New("offline")}, staticChannels{}, 1, zerolog.Nop())
	_, err := sim.SimulateDay(context.Background(), time.Now())
	assert.Error(t, err)
}
