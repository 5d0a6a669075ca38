package actuator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"

	"github.com/arttuliini/GPIO-Vasalli/internal/config"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// ModbusSwitch maps channels onto the coils of a Modbus TCP relay board.
type ModbusSwitch struct {
	client modbus.Client
	close  func() error
	offset int
	logger zerolog.Logger

	mu sync.Mutex
}

var _ Switch = (*ModbusSwitch)(nil)

// DialModbus connects to the board described by cfg.
func DialModbus(cfg config.ModbusConfig, logger zerolog.Logger) (*ModbusSwitch, error) {
	handler := modbus.NewTCPClientHandler(cfg.Address)
	handler.SlaveId = byte(cfg.SlaveID)
	handler.Timeout = cfg.Timeout
	if handler.Timeout <= 0 {
		handler.Timeout = 5 * time.Second
	}
	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("connect modbus %s: %w", cfg.Address, err)
	}
	return NewModbusSwitch(modbus.NewClient(handler), handler.Close, cfg.CoilOffset, logger), nil
}

// NewModbusSwitch wraps an existing client. closeFn may be nil.
func NewModbusSwitch(client modbus.Client, closeFn func() error, offset int, logger zerolog.Logger) *ModbusSwitch {
	return &ModbusSwitch{
		client: client,
		close:  closeFn,
		offset: offset,
		logger: logger.With().Str("component", "actuator").Str("driver", "modbus").Logger(),
	}
}

func (s *ModbusSwitch) Set(ctx context.Context, number int, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	coil := number + s.offset
	if coil < 0 || coil > math.MaxUint16 {
		return fmt.Errorf("channel %d maps to coil %d outside the modbus address space", number, coil)
	}

	value := coilOff
	if on {
		value = coilOn
	}

	s.mu.Lock()
	_, err := s.client.WriteSingleCoil(uint16(coil), value)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write coil %d value %#04x: %w", coil, value, err)
	}

	s.logger.Info().Int("channel", number).Int("coil", coil).Str("state", label(on)).Msg("output set")
	return nil
}

func (s *ModbusSwitch) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
