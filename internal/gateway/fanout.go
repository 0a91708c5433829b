package gateway

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"timeauction/backend/internal/auction"
	"timeauction/backend/internal/broker"
)

// Fanout bridges the broker to the websocket layer: every event
// published on the room-list subject or any per-room subject is
// forwarded verbatim to that topic's subscribers.
type Fanout struct {
	manager *ConnectionManager
	broker  broker.Broker
	subs    []broker.Subscription
}

// NewFanout creates a broker-to-websocket bridge.
func NewFanout(b broker.Broker, manager *ConnectionManager) *Fanout {
	return &Fanout{manager: manager, broker: b}
}

// Start subscribes to the synchronization channel's subjects.
func (f *Fanout) Start() error {
	patterns := []string{auction.SubjectRooms, auction.SubjectRoomPrefix + ">"}
	for _, pattern := range patterns {
		sub, err := f.broker.Subscribe(pattern, f.forward)
		if err != nil {
			f.Stop()
			return fmt.Errorf("subscribe %s: %w", pattern, err)
		}
		f.subs = append(f.subs, sub)
	}
	log.Info().Msg("event fanout started")
	return nil
}

func (f *Fanout) forward(subject string, data []byte) {
	f.manager.Broadcast(subject, data)
}

// Stop releases the broker subscriptions.
func (f *Fanout) Stop() {
	for _, sub := range f.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Msg("failed to unsubscribe fanout")
		}
	}
	f.subs = nil
}
