// Package actuator drives channel outputs.
package actuator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arttuliini/GPIO-Vasalli/internal/config"
	"github.com/arttuliini/GPIO-Vasalli/internal/decision"
)

// Switch sets a numbered output on or off.
type Switch interface {
	Set(ctx context.Context, number int, on bool) error
	Close() error
}

// Apply writes d to sw. Only StateOn energizes the output.
func Apply(ctx context.Context, sw Switch, d decision.Decision) error {
	return sw.Set(ctx, d.Channel, d.State.Active())
}

// New selects a driver from cfg.Driver.
func New(cfg config.OutputConfig, logger zerolog.Logger) (Switch, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "log":
		return NewLogSwitch(logger), nil
	case "modbus":
		return DialModbus(cfg.Modbus, logger)
	case "mqtt":
		return NewMQTTSwitch(cfg.MQTT, logger)
	}
	return nil, fmt.Errorf("output driver %q is not supported", cfg.Driver)
}

func label(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
