package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"timeauction/backend/internal/auction"
	"timeauction/backend/internal/auction/events"
	"timeauction/backend/internal/broker"
)

// dialTestServer boots the full gateway stack on an httptest server and
// dials it.
func dialTestServer(t *testing.T) (*websocket.Conn, *auction.Registry) {
	t.Helper()

	bus := broker.NewMemoryBroker()
	registry := auction.NewRegistry(bus, clockwork.NewRealClock(), auction.DefaultSettings())
	manager := NewConnectionManager(DefaultConnectionConfig())
	manager.SetDispatcher(NewDispatcher(registry, auction.NewMatchmaker(registry), clockwork.NewRealClock()))

	fanout := NewFanout(bus, manager)
	if err := fanout.Start(); err != nil {
		t.Fatalf("start fanout: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(manager).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?player_id=p0&name=Zero"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		srv.Close()
		cancel()
		fanout.Stop()
		bus.Close()
	})
	return conn, registry
}

func readWireEvent(t *testing.T, conn *websocket.Conn) events.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := events.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

func TestWebSocketGreetsWithRoomList(t *testing.T) {
	conn, _ := dialTestServer(t)

	env := readWireEvent(t, conn)
	if env.Type != events.TypeRoomList {
		t.Fatalf("first event = %s, want RoomList", env.Type)
	}
}

func TestWebSocketQuickJoinRoundTrip(t *testing.T) {
	conn, registry := dialTestServer(t)
	readWireEvent(t, conn) // greeting

	msg, _ := json.Marshal(Intent{Type: IntentQuickJoin})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The caller sees its seat: either the direct snapshot or the broker
	// broadcast arrives first, both carry the seated roster.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no join event observed")
		}
		env := readWireEvent(t, conn)
		if env.Type != events.TypePlayerJoined {
			continue
		}
		var st events.GameState
		if err := json.Unmarshal(env.Data, &st); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if len(st.Players) == 1 && st.Players[0].PlayerID == "p0" {
			break
		}
	}

	if len(registry.Rooms()) != 1 {
		t.Errorf("expected one room, got %d", len(registry.Rooms()))
	}
}

func TestWebSocketRequiresPlayerID(t *testing.T) {
	manager := NewConnectionManager(DefaultConnectionConfig())
	mux := http.NewServeMux()
	NewWebSocketHandler(manager).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without player_id succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 response, got %+v", resp)
	}
}
