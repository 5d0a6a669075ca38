package actuator

import (
	"context"
	"fmt"
	"strings"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/rs/zerolog"

	"github.com/arttuliini/GPIO-Vasalli/internal/config"
)

type publisher interface {
	Publish(topic string, payload []byte, retain bool, qos byte) error
}

// MQTTSwitch publishes retained ON/OFF messages from an embedded broker.
// Relay controllers subscribe to {prefix}/{number}/state.
type MQTTSwitch struct {
	pub    publisher
	server *mqttv2.Server
	prefix string
	logger zerolog.Logger
}

var _ Switch = (*MQTTSwitch)(nil)

// NewMQTTSwitch starts the embedded broker. An empty address starts it
// without a network listener.
func NewMQTTSwitch(cfg config.MQTTConfig, logger zerolog.Logger) (*MQTTSwitch, error) {
	server := mqttv2.New(&mqttv2.Options{InlineClient: true})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("mqtt auth hook: %w", err)
	}
	if cfg.Address != "" {
		tcp := listeners.NewTCP(listeners.Config{ID: "vasalli", Address: cfg.Address})
		if err := server.AddListener(tcp); err != nil {
			return nil, fmt.Errorf("mqtt listener %s: %w", cfg.Address, err)
		}
	}
	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("start mqtt broker: %w", err)
	}

	sw := newMQTTSwitch(server, cfg.TopicPrefix, logger)
	sw.server = server
	return sw, nil
}

func newMQTTSwitch(pub publisher, prefix string, logger zerolog.Logger) *MQTTSwitch {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = "vasalli/channel"
	}
	return &MQTTSwitch{
		pub:    pub,
		prefix: prefix,
		logger: logger.With().Str("component", "actuator").Str("driver", "mqtt").Logger(),
	}
}

// Topic returns the state topic of number.
func (s *MQTTSwitch) Topic(number int) string {
	return fmt.Sprintf("%s/%d/state", s.prefix, number)
}

func (s *MQTTSwitch) Set(ctx context.Context, number int, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	topic := s.Topic(number)
	if err := s.pub.Publish(topic, []byte(label(on)), true, 1); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	s.logger.Info().Int("channel", number).Str("topic", topic).Str("state", label(on)).Msg("output set")
	return nil
}

func (s *MQTTSwitch) Close() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}
