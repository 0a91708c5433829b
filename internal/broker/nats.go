package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds connection settings for the NATS-backed broker.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns settings suitable for a local NATS server,
// reconnecting forever.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSBroker carries the synchronization channel over a NATS server so
// multiple lobby instances can share one event stream.
type NATSBroker struct {
	nc *nats.Conn
}

// NewNATSBroker connects to NATS with reconnect handlers wired to the
// logger.
func NewNATSBroker(cfg NATSConfig) (*NATSBroker, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSBroker{nc: nc}, nil
}

// Publish sends data on the subject.
func (b *NATSBroker) Publish(subject string, data []byte) error {
	if err := b.nc.Publish(subject, data); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrConnectionDraining) {
			return ErrTransportUnavailable
		}
		return err
	}
	return nil
}

// Subscribe registers a handler for the subject pattern.
func (b *NATSBroker) Subscribe(pattern string, h Handler) (Subscription, error) {
	sub, err := b.nc.Subscribe(pattern, func(msg *nats.Msg) {
		h(msg.Subject, msg.Data)
	})
	if err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return nil, ErrTransportUnavailable
		}
		return nil, err
	}
	return sub, nil
}

// Close drains and closes the connection.
func (b *NATSBroker) Close() error {
	if b.nc == nil {
		return nil
	}
	b.nc.Close()
	return nil
}
