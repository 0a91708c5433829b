package auction

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Matchmaker implements quick join: seat the player in the oldest open
// room, or create one. Its mutex makes the scan-create-join sequence
// atomic with respect to concurrent quick joins, so two callers are
// never both promised the last free seat and no duplicate rooms are
// created when one empty room would do.
type Matchmaker struct {
	registry *Registry
	mu       sync.Mutex
}

// NewMatchmaker creates a matchmaker over the registry.
func NewMatchmaker(registry *Registry) *Matchmaker {
	return &Matchmaker{registry: registry}
}

// QuickJoin seats the player in the first joinable room in creation
// order, creating a room with default name and capacity if none exists.
func (m *Matchmaker) QuickJoin(playerID, displayName string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.registry.Rooms() {
		err := m.registry.JoinRoom(room.ID(), playerID, displayName)
		switch err {
		case nil:
			log.Info().
				Str("room_id", room.ID()).
				Str("player_id", playerID).
				Msg("quick join matched existing room")
			return room, nil
		case ErrRoomFull, ErrInvalidState:
			continue
		default:
			return nil, err
		}
	}

	room := m.registry.CreateRoom("", 0)
	if err := m.registry.JoinRoom(room.ID(), playerID, displayName); err != nil {
		return nil, err
	}
	log.Info().
		Str("room_id", room.ID()).
		Str("player_id", playerID).
		Msg("quick join created new room")
	return room, nil
}
