package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"timeauction/backend/internal/auction"
	"timeauction/backend/internal/auction/events"
	"timeauction/backend/internal/broker"
)

func newTestDispatcher() (*Dispatcher, *ConnectionManager, *auction.Registry) {
	registry := auction.NewRegistry(broker.NewMemoryBroker(), clockwork.NewFakeClock(), auction.DefaultSettings())
	manager := NewConnectionManager(DefaultConnectionConfig())
	d := NewDispatcher(registry, auction.NewMatchmaker(registry), clockwork.NewFakeClock())
	manager.SetDispatcher(d)
	return d, manager, registry
}

func newTestConnection(manager *ConnectionManager, playerID string) *Connection {
	return &Connection{
		ID:          "test-" + playerID,
		PlayerID:    playerID,
		DisplayName: "Player " + playerID,
		Send:        make(chan []byte, 64),
		Manager:     manager,
	}
}

func readEvent(t *testing.T, conn *Connection) events.Envelope {
	t.Helper()
	select {
	case data := <-conn.Send:
		env, err := events.Unmarshal(data)
		if err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return events.Envelope{}
	}
}

func intent(t *testing.T, typ string, data any) []byte {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal intent data: %v", err)
		}
	}
	msg, err := json.Marshal(Intent{Type: typ, Data: raw})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return msg
}

func TestDispatchListRooms(t *testing.T) {
	d, manager, registry := newTestDispatcher()
	registry.CreateRoom("visible", 4)
	conn := newTestConnection(manager, "p0")

	d.Dispatch(conn, intent(t, IntentListRooms, nil))

	env := readEvent(t, conn)
	if env.Type != events.TypeRoomList {
		t.Fatalf("event type = %s, want RoomList", env.Type)
	}
	var payload events.RoomListPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Rooms) != 1 || payload.Rooms[0].RoomName != "visible" {
		t.Errorf("unexpected room list: %+v", payload.Rooms)
	}
}

func TestDispatchQuickJoinSeatsAndSubscribes(t *testing.T) {
	d, manager, registry := newTestDispatcher()
	conn := newTestConnection(manager, "p0")

	d.Dispatch(conn, intent(t, IntentQuickJoin, nil))

	env := readEvent(t, conn)
	if env.Type != events.TypePlayerJoined {
		t.Fatalf("event type = %s, want PlayerJoined snapshot", env.Type)
	}
	rooms := registry.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("expected one room, got %d", len(rooms))
	}
	if conn.RoomID() != rooms[0].ID() {
		t.Errorf("connection room = %s, want %s", conn.RoomID(), rooms[0].ID())
	}

	// A room broadcast now reaches this connection.
	manager.SubscribeTopic(conn, auction.RoomSubject(rooms[0].ID())) // idempotent
	manager.deliver(broadcast{topic: auction.RoomSubject(rooms[0].ID()), data: []byte(`{"id":"x"}`)})
	select {
	case <-conn.Send:
	case <-time.After(time.Second):
		t.Error("connection not subscribed to its room topic")
	}
}

func TestDispatchJoinUnknownRoomReportsNotFound(t *testing.T) {
	d, manager, _ := newTestDispatcher()
	conn := newTestConnection(manager, "p0")

	d.Dispatch(conn, intent(t, IntentJoinRoom, map[string]string{"room_id": "ghost"}))

	env := readEvent(t, conn)
	if env.Type != events.TypeError {
		t.Fatalf("event type = %s, want Error", env.Type)
	}
	var payload events.ErrorPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Code != "NOT_FOUND" || payload.Intent != IntentJoinRoom {
		t.Errorf("unexpected error payload: %+v", payload)
	}
}

func TestDispatchMalformedIntent(t *testing.T) {
	d, manager, _ := newTestDispatcher()
	conn := newTestConnection(manager, "p0")

	d.Dispatch(conn, []byte("not json"))

	env := readEvent(t, conn)
	if env.Type != events.TypeError {
		t.Errorf("event type = %s, want Error", env.Type)
	}
}

func TestDispatchCreateRoom(t *testing.T) {
	d, manager, registry := newTestDispatcher()
	conn := newTestConnection(manager, "p0")

	d.Dispatch(conn, intent(t, IntentCreateRoom, map[string]string{"name": "fresh"}))

	rooms := registry.Rooms()
	if len(rooms) != 1 || rooms[0].Name() != "fresh" {
		t.Fatalf("room not created: %v", rooms)
	}
	// Creating does not seat the creator; the room stays empty.
	if occ := len(rooms[0].State().Players); occ != 0 {
		t.Errorf("occupancy = %d, want 0", occ)
	}
}

func TestHandleDisconnectVacatesSeat(t *testing.T) {
	d, manager, registry := newTestDispatcher()
	room := registry.CreateRoom("seat", 4)
	conn := newTestConnection(manager, "p0")

	d.Dispatch(conn, intent(t, IntentJoinRoom, map[string]string{"room_id": room.ID()}))
	if occ := len(room.State().Players); occ != 1 {
		t.Fatalf("occupancy = %d, want 1 after join", occ)
	}

	d.HandleDisconnect(conn)
	// The room was the player's alone, so it is destroyed with them.
	if _, err := registry.Room(room.ID()); err == nil {
		t.Errorf("room still present after lone occupant disconnected")
	}
}

func TestLeaveRoomIntent(t *testing.T) {
	d, manager, registry := newTestDispatcher()
	room := registry.CreateRoom("leave", 4)
	if err := registry.JoinRoom(room.ID(), "stay", "Stay"); err != nil {
		t.Fatalf("join: %v", err)
	}

	conn := newTestConnection(manager, "p0")
	d.Dispatch(conn, intent(t, IntentJoinRoom, map[string]string{"room_id": room.ID()}))
	readEvent(t, conn) // join snapshot

	d.Dispatch(conn, intent(t, IntentLeaveRoom, map[string]string{"room_id": room.ID()}))
	if conn.RoomID() != "" {
		t.Errorf("connection still bound to room after leave")
	}
	if occ := len(room.State().Players); occ != 1 {
		t.Errorf("occupancy = %d, want 1 after leave", occ)
	}
}
