package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arttuliini/GPIO-Vasalli/internal/actuator"
	"github.com/arttuliini/GPIO-Vasalli/internal/alerting"
	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/decision"
	"github.com/arttuliini/GPIO-Vasalli/internal/price"
	"github.com/arttuliini/GPIO-Vasalli/internal/storage"
)

type staticChannels struct {
	cfgs []channel.Config
	err  error
}

func (s staticChannels) Channels(channel.Mode, func(channel.Config, string)) ([]channel.Config, error) {
	return s.cfgs, s.err
}

// limitLookup classifies a fixed current price and answers cheapest-hour
// checks from a fixed ranking position.
type limitLookup struct {
	price    int
	position int
	fail     map[int]bool

	mu    sync.Mutex
	calls int
}

func (l *limitLookup) Classify(_ context.Context, lower, upper int) (price.Class, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.fail[lower] {
		return 0, errors.New("rate limited")
	}
	return price.Classify(decimal.NewFromInt(int64(l.price)), lower, upper), nil
}

func (l *limitLookup) IsCheapestHour(_ context.Context, n int) (bool, error) {
	return l.position <= n, nil
}

type recordingStore struct {
	storage.DecisionStore
	records []storage.DecisionRecord
}

func (r *recordingStore) InsertDecisions(_ context.Context, records []storage.DecisionRecord) error {
	r.records = append(r.records, records...)
	return nil
}

type fakeLocker struct {
	recordingStore
	acquired bool
	unlocked bool
}

func (f *fakeLocker) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	return func() { f.unlocked = true }, f.acquired, nil
}

type recordingNotifier struct {
	notes []alerting.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n alerting.Notification) error {
	r.notes = append(r.notes, n)
	return nil
}

func liveChannels() []channel.Config {
	return []channel.Config{
		{Number: 4, Identifier: "sauna", Lower: 2, Upper: 6},
		{Number: 17, Identifier: "boiler", Lower: 5, Upper: 15, RankN: 3},
		{Number: 27, Identifier: "heater", Lower: 12, Upper: 20},
		{Number: 30, Identifier: "pool", Lower: 3, Upper: 15, RankN: 1},
	}
}

func TestProcessHour(t *testing.T) {
	dir := t.TempDir()
	sw := actuator.NewLogSwitch(zerolog.Nop())
	store := &recordingStore{}
	notifier := &recordingNotifier{}
	status := storage.NewStatusFile(filepath.Join(dir, "status.json"))

	svc := New(Options{
		Channels:    staticChannels{cfgs: liveChannels()},
		Oracle:      &limitLookup{price: 10, position: 2},
		Switch:      sw,
		Status:      status,
		History:     storage.NewCSVHistory(filepath.Join(dir, "history.csv")),
		Store:       store,
		Notifier:    notifier,
		Concurrency: 3,
	}, zerolog.Nop())
	svc.newRunID = func() string { return "run-1" }

	hour := time.Date(2024, 1, 10, 13, 42, 0, 0, time.UTC)
	res, err := svc.ProcessHour(context.Background(), hour)
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, time.Date(2024, 1, 10, 13, 0, 0, 0, time.UTC), res.Hour)
	require.Len(t, res.Decisions, 4)

	want := map[int]decision.Reason{
		4:  decision.ReasonAboveUpper,
		17: decision.ReasonWithinCheapest,
		27: decision.ReasonAtOrBelowLower,
		30: decision.ReasonWithinNotCheapest,
	}
	for i, d := range res.Decisions {
		assert.Equal(t, liveChannels()[i].Number, d.Channel, "decisions keep channel order")
		assert.Equal(t, want[d.Channel], d.Reason, "channel %d", d.Channel)
	}

	on, known := sw.State(17)
	assert.True(t, known)
	assert.True(t, on)
	on, _ = sw.State(4)
	assert.False(t, on)

	assert.Len(t, store.records, 4)
	assert.Equal(t, ModeLive, store.records[0].Mode)

	snapshot, err := status.Read()
	require.NoError(t, err)
	assert.Equal(t, "ON", snapshot["boiler"].State)

	require.Len(t, notifier.notes, 1)
	assert.Len(t, notifier.notes[0].Changes, 4)

	_, err = svc.ProcessHour(context.Background(), hour.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, notifier.notes, 1, "unchanged states do not notify")
}

func TestProcessHourFoldsOracleFailures(t *testing.T) {
	sw := actuator.NewLogSwitch(zerolog.Nop())
	lookup := &limitLookup{price: 1, fail: map[int]bool{5: true}}

	svc := New(Options{
		Channels: staticChannels{cfgs: liveChannels()},
		Oracle:   lookup,
		Switch:   sw,
	}, zerolog.Nop())

	res, err := svc.ProcessHour(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, res.Decisions, 4)

	boiler := res.Decisions[1]
	assert.Equal(t, decision.StateUnknown, boiler.State)
	assert.Equal(t, decision.ReasonUnavailable, boiler.Reason)
	on, known := sw.State(17)
	assert.True(t, known)
	assert.False(t, on)

	for _, d := range []decision.Decision{res.Decisions[0], res.Decisions[2], res.Decisions[3]} {
		assert.Equal(t, decision.StateOn, d.State, "channel %d", d.Channel)
	}
	assert.Equal(t, 4, lookup.calls)
}

func TestProcessHourKeepsValidChannels(t *testing.T) {
	invalid := &channel.ValidationError{Index: 2, Field: channel.KeyLower, Reason: "bad"}
	svc := New(Options{
		Channels: staticChannels{cfgs: liveChannels()[:1], err: invalid},
		Oracle:   &limitLookup{price: 1},
	}, zerolog.Nop())

	res, err := svc.ProcessHour(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Len(t, res.Decisions, 1)

	svc = New(Options{
		Channels: staticChannels{err: errors.New("permission denied")},
		Oracle:   &limitLookup{},
	}, zerolog.Nop())
	_, err = svc.ProcessHour(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestProcessHourAdvisoryLock(t *testing.T) {
	locker := &fakeLocker{}
	svc := New(Options{
		Channels: staticChannels{cfgs: liveChannels()},
		Oracle:   &limitLookup{},
		Store:    locker,
		LockKey:  42,
	}, zerolog.Nop())

	res, err := svc.ProcessHour(context.Background(), time.Now())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, locker.records)

	locker.acquired = true
	res, err = svc.ProcessHour(context.Background(), time.Now())
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Len(t, locker.records, 4)
	assert.True(t, locker.unlocked)
}

func TestRunRequiresScheduler(t *testing.T) {
	assert.Error(t, New(Options{}, zerolog.Nop()).Run(context.Background()))
}
