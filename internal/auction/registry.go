package auction

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"timeauction/backend/internal/auction/events"
	"timeauction/backend/internal/broker"
)

// Broker subjects carrying room-list and per-room game-state events.
const (
	SubjectRooms      = "auction.rooms"
	SubjectRoomPrefix = "auction.room."
)

// RoomSubject returns the broker subject for one room's game state.
func RoomSubject(roomID string) string {
	return SubjectRoomPrefix + roomID
}

// Registry is the process-wide room catalog. Listing is concurrent;
// insert and remove are serialized. Every room change is published on
// the broker: summaries on SubjectRooms, game state on the room subject.
type Registry struct {
	broker   broker.Broker
	clock    clockwork.Clock
	settings Settings

	mu    sync.RWMutex
	rooms map[string]*Room
	order []string // creation order; quick join scans oldest first
	seq   int
}

// NewRegistry creates an empty registry publishing on b.
func NewRegistry(b broker.Broker, clock clockwork.Clock, settings Settings) *Registry {
	return &Registry{
		broker:   b,
		clock:    clock,
		settings: settings,
		rooms:    make(map[string]*Room),
	}
}

// Settings returns the game rules the registry seats players with.
func (g *Registry) Settings() Settings { return g.settings }

// CreateRoom allocates a new waiting, empty room. A blank name or
// non-positive capacity falls back to the defaults.
func (g *Registry) CreateRoom(name string, maxPlayers int) *Room {
	if maxPlayers <= 0 {
		maxPlayers = g.settings.DefaultMaxPlayers
	}

	g.mu.Lock()
	g.seq++
	if name == "" {
		name = fmt.Sprintf("Room %d", g.seq)
	}
	room := newRoom(uuid.New().String(), name, maxPlayers, g.settings, g.clock, g)
	g.rooms[room.id] = room
	g.order = append(g.order, room.id)
	g.mu.Unlock()

	log.Info().
		Str("room_id", room.id).
		Str("room_name", name).
		Int("max_players", maxPlayers).
		Msg("room created")
	g.publishRoomList()
	return room
}

// Room finds a room by ID.
func (g *Registry) Room(id string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return room, nil
}

// Rooms snapshots all rooms in creation order.
func (g *Registry) Rooms() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Room, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.rooms[id])
	}
	return out
}

// OpenRooms snapshots the rooms a player could join right now.
func (g *Registry) OpenRooms() []*Room {
	var out []*Room
	for _, room := range g.Rooms() {
		if room.Joinable() {
			out = append(out, room)
		}
	}
	return out
}

// Summaries returns the lobby-list view of every room, creation order.
func (g *Registry) Summaries() []events.RoomSummary {
	rooms := g.Rooms()
	out := make([]events.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Summary())
	}
	return out
}

// RemoveRoom destroys an empty room. A room that still has occupants is
// left alone; the caller must first drain it.
func (g *Registry) RemoveRoom(id string) {
	g.mu.Lock()
	room, ok := g.rooms[id]
	if !ok {
		g.mu.Unlock()
		return
	}
	room.mu.Lock()
	if len(room.players) > 0 {
		room.mu.Unlock()
		g.mu.Unlock()
		return
	}
	room.closeLocked()
	room.mu.Unlock()

	delete(g.rooms, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	log.Info().Str("room_id", id).Msg("room destroyed")
	g.publishRoomList()
}

// JoinRoom seats a player in a room with a fresh budget.
func (g *Registry) JoinRoom(roomID, playerID, displayName string) error {
	room, err := g.Room(roomID)
	if err != nil {
		return err
	}
	return room.Join(NewPlayerSession(playerID, displayName, g.settings.InitialBudget))
}

// LeaveRoom removes a player; the room is destroyed once empty.
func (g *Registry) LeaveRoom(roomID, playerID string) error {
	room, err := g.Room(roomID)
	if err != nil {
		return err
	}
	empty, err := room.Leave(playerID)
	if err != nil {
		return err
	}
	if empty {
		g.RemoveRoom(roomID)
	}
	return nil
}

// PlaceBet forwards a bid intent to the room's round.
func (g *Registry) PlaceBet(roomID, playerID string) error {
	room, err := g.Room(roomID)
	if err != nil {
		return err
	}
	return room.PlaceBet(playerID)
}

// publishRoomState broadcasts one room's game state. Safe to call under
// a room lock: the broker hands the event off without re-entering rooms.
func (g *Registry) publishRoomState(typ events.Type, state events.GameState) {
	env, err := events.New(typ, state.RoomID, g.clock.Now(), state)
	if err != nil {
		log.Error().Err(err).Str("room_id", state.RoomID).Msg("failed to build room state event")
		return
	}
	g.publish(RoomSubject(state.RoomID), env)
}

// publishRoomList broadcasts the full summary list. Must not be called
// while holding any room lock: it snapshots every room.
func (g *Registry) publishRoomList() {
	payload := events.RoomListPayload{Rooms: g.Summaries()}
	env, err := events.New(events.TypeRoomList, "", g.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build room list event")
		return
	}
	g.publish(SubjectRooms, env)
}

func (g *Registry) publish(subject string, env events.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to marshal event")
		return
	}
	if err := g.broker.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
