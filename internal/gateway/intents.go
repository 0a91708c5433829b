package gateway

import (
	"encoding/json"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"timeauction/backend/internal/auction"
	"timeauction/backend/internal/auction/events"
	"timeauction/backend/internal/broker"
)

// Intent is the inbound client-to-server message envelope.
type Intent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client intent types.
const (
	IntentCreateRoom = "create_room"
	IntentJoinRoom   = "join_room"
	IntentLeaveRoom  = "leave_room"
	IntentPlaceBet   = "place_bet"
	IntentQuickJoin  = "quick_join"
	IntentListRooms  = "list_rooms"
)

type intentData struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

// Dispatcher routes inbound intents to the matchmaker or the target
// room's round. Rejections are reported only to the initiating
// connection as an Error event; accepted mutations reach everyone via
// the broker fanout.
type Dispatcher struct {
	registry   *auction.Registry
	matchmaker *auction.Matchmaker
	clock      clockwork.Clock
}

// NewDispatcher creates an intent dispatcher.
func NewDispatcher(registry *auction.Registry, matchmaker *auction.Matchmaker, clock clockwork.Clock) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		matchmaker: matchmaker,
		clock:      clock,
	}
}

// HandleConnect greets a new connection with the current room list.
func (d *Dispatcher) HandleConnect(conn *Connection) {
	d.sendRoomList(conn)
}

// HandleDisconnect vacates the connection's seat when the socket drops.
func (d *Dispatcher) HandleDisconnect(conn *Connection) {
	roomID := conn.RoomID()
	if roomID == "" {
		return
	}
	if err := d.registry.LeaveRoom(roomID, conn.PlayerID); err != nil && !errors.Is(err, auction.ErrNotFound) {
		log.Error().
			Err(err).
			Str("room_id", roomID).
			Str("player_id", conn.PlayerID).
			Msg("failed to vacate seat on disconnect")
	}
	conn.SetRoomID("")
}

// Dispatch parses and executes one intent from a connection.
func (d *Dispatcher) Dispatch(conn *Connection, raw []byte) {
	var intent Intent
	if err := json.Unmarshal(raw, &intent); err != nil {
		d.sendError(conn, "", errors.New("malformed intent"))
		return
	}
	var data intentData
	if len(intent.Data) > 0 {
		if err := json.Unmarshal(intent.Data, &data); err != nil {
			d.sendError(conn, intent.Type, errors.New("malformed intent data"))
			return
		}
	}

	log.Debug().
		Str("intent", intent.Type).
		Str("player_id", conn.PlayerID).
		Msg("dispatching intent")

	var err error
	switch intent.Type {
	case IntentCreateRoom:
		d.registry.CreateRoom(data.Name, 0)
	case IntentJoinRoom:
		err = d.joinRoom(conn, data.RoomID)
	case IntentLeaveRoom:
		err = d.leaveRoom(conn, data.RoomID)
	case IntentPlaceBet:
		err = d.registry.PlaceBet(data.RoomID, conn.PlayerID)
	case IntentQuickJoin:
		err = d.quickJoin(conn)
	case IntentListRooms:
		d.sendRoomList(conn)
	default:
		err = errors.New("unknown intent type")
	}

	if err != nil {
		d.sendError(conn, intent.Type, err)
	}
}

func (d *Dispatcher) joinRoom(conn *Connection, roomID string) error {
	if err := d.registry.JoinRoom(roomID, conn.PlayerID, conn.DisplayName); err != nil {
		return err
	}
	d.enterRoom(conn, roomID)
	return nil
}

func (d *Dispatcher) quickJoin(conn *Connection) error {
	room, err := d.matchmaker.QuickJoin(conn.PlayerID, conn.DisplayName)
	if err != nil {
		return err
	}
	d.enterRoom(conn, room.ID())
	return nil
}

// enterRoom subscribes the connection to its room's topic and sends it
// an immediate state snapshot so the client never waits for the next
// broadcast.
func (d *Dispatcher) enterRoom(conn *Connection, roomID string) {
	conn.SetRoomID(roomID)
	conn.Manager.SubscribeTopic(conn, auction.RoomSubject(roomID))

	room, err := d.registry.Room(roomID)
	if err != nil {
		return
	}
	env, err := events.New(events.TypePlayerJoined, roomID, d.clock.Now(), room.State())
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to build state snapshot")
		return
	}
	conn.SendEvent(env)
}

func (d *Dispatcher) leaveRoom(conn *Connection, roomID string) error {
	if err := d.registry.LeaveRoom(roomID, conn.PlayerID); err != nil {
		return err
	}
	conn.Manager.UnsubscribeTopic(conn, auction.RoomSubject(roomID))
	conn.SetRoomID("")
	return nil
}

func (d *Dispatcher) sendRoomList(conn *Connection) {
	payload := events.RoomListPayload{Rooms: d.registry.Summaries()}
	env, err := events.New(events.TypeRoomList, "", d.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build room list")
		return
	}
	conn.SendEvent(env)
}

func (d *Dispatcher) sendError(conn *Connection, intentType string, cause error) {
	payload := events.ErrorPayload{
		Intent:  intentType,
		Code:    errorCode(cause),
		Message: cause.Error(),
	}
	env, err := events.New(events.TypeError, "", d.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build error event")
		return
	}
	conn.SendEvent(env)
}

// errorCode maps domain errors to stable wire codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, auction.ErrRoomFull):
		return "ROOM_FULL"
	case errors.Is(err, auction.ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, auction.ErrAlreadyBet):
		return "ALREADY_BET"
	case errors.Is(err, auction.ErrInsufficientBudget):
		return "INSUFFICIENT_BUDGET"
	case errors.Is(err, auction.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, broker.ErrTransportUnavailable):
		return "TRANSPORT_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}
