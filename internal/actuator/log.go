package actuator

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogSwitch only logs and remembers the requested states.
type LogSwitch struct {
	logger zerolog.Logger

	mu     sync.Mutex
	states map[int]bool
}

var _ Switch = (*LogSwitch)(nil)

// NewLogSwitch constructs a dry-run switch.
func NewLogSwitch(logger zerolog.Logger) *LogSwitch {
	return &LogSwitch{
		logger: logger.With().Str("component", "actuator").Str("driver", "log").Logger(),
		states: make(map[int]bool),
	}
}

func (s *LogSwitch) Set(_ context.Context, number int, on bool) error {
	s.mu.Lock()
	s.states[number] = on
	s.mu.Unlock()

	s.logger.Info().Int("channel", number).Str("state", label(on)).Msg("output set")
	return nil
}

// State returns the last state written to number.
func (s *LogSwitch) State(number int) (on, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	on, known = s.states[number]
	return on, known
}

func (s *LogSwitch) Close() error {
	return nil
}
