package actuator

import (
	"context"
	"errors"
	"testing"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arttuliini/GPIO-Vasalli/internal/config"
	"github.com/arttuliini/GPIO-Vasalli/internal/decision"
)

type coilWrite struct {
	address uint16
	value   uint16
}

type fakeModbus struct {
	modbus.Client
	writes []coilWrite
	err    error
}

func (f *fakeModbus) WriteSingleCoil(address, value uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.writes = append(f.writes, coilWrite{address: address, value: value})
	return []byte{byte(value >> 8), byte(value)}, nil
}

func TestModbusSwitchWritesCoils(t *testing.T) {
	fake := &fakeModbus{}
	closed := false
	sw := NewModbusSwitch(fake, func() error { closed = true; return nil }, 100, zerolog.Nop())

	require.NoError(t, sw.Set(context.Background(), 17, true))
	require.NoError(t, sw.Set(context.Background(), 4, false))
	require.NoError(t, sw.Close())

	assert.Equal(t, []coilWrite{{address: 117, value: 0xFF00}, {address: 104, value: 0}}, fake.writes)
	assert.True(t, closed)
}

func TestModbusSwitchErrors(t *testing.T) {
	sw := NewModbusSwitch(&fakeModbus{err: errors.New("broken pipe")}, nil, 0, zerolog.Nop())
	assert.Error(t, sw.Set(context.Background(), 1, true))

	sw = NewModbusSwitch(&fakeModbus{}, nil, -10, zerolog.Nop())
	assert.Error(t, sw.Set(context.Background(), 3, true))
	assert.NoError(t, sw.Close())
}

type publishCall struct {
	topic   string
	payload string
	retain  bool
}

type fakePublisher struct {
	calls []publishCall
}

func (f *fakePublisher) Publish(topic string, payload []byte, retain bool, _ byte) error {
	f.calls = append(f.calls, publishCall{topic: topic, payload: string(payload), retain: retain})
	return nil
}

func TestMQTTSwitchPublishesRetainedState(t *testing.T) {
	pub := &fakePublisher{}
	sw := newMQTTSwitch(pub, "home/relays/", zerolog.Nop())

	require.NoError(t, sw.Set(context.Background(), 22, true))
	require.NoError(t, sw.Set(context.Background(), 22, false))

	assert.Equal(t, []publishCall{
		{topic: "home/relays/22/state", payload: "ON", retain: true},
		{topic: "home/relays/22/state", payload: "OFF", retain: true},
	}, pub.calls)
}

func TestMQTTSwitchEmbeddedBroker(t *testing.T) {
	sw, err := NewMQTTSwitch(config.MQTTConfig{TopicPrefix: "vasalli/channel"}, zerolog.Nop())
	require.NoError(t, err)
	defer sw.Close()

	assert.NoError(t, sw.Set(context.Background(), 5, true))
}

func TestApplyTreatsUnknownAsOff(t *testing.T) {
	sw := NewLogSwitch(zerolog.Nop())

	require.NoError(t, Apply(context.Background(), sw, decision.Decision{Channel: 3, State: decision.StateUnknown}))
	on, known := sw.State(3)
	assert.True(t, known)
	assert.False(t, on)

	require.NoError(t, Apply(context.Background(), sw, decision.Decision{Channel: 3, State: decision.StateOn}))
	on, _ = sw.State(3)
	assert.True(t, on)
}

func TestNewSelectsDriver(t *testing.T) {
	sw, err := New(config.OutputConfig{Driver: "LOG"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogSwitch{}, sw)

	_, err = New(config.OutputConfig{Driver: "gpio"}, zerolog.Nop())
	assert.Error(t, err)
}
