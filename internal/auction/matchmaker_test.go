package auction

import (
	"fmt"
	"sync"
	"testing"
)

func TestQuickJoinCreatesRoomWhenNoneOpen(t *testing.T) {
	g, _ := newTestRegistry(DefaultSettings())
	m := NewMatchmaker(g)

	room, err := m.QuickJoin("p0", "P0")
	if err != nil {
		t.Fatalf("quick join: %v", err)
	}
	if len(g.Rooms()) != 1 {
		t.Fatalf("expected exactly one room, got %d", len(g.Rooms()))
	}
	if occ := len(room.State().Players); occ != 1 {
		t.Errorf("occupancy = %d, want 1", occ)
	}
}

func TestQuickJoinPrefersOldestOpenRoom(t *testing.T) {
	g, _ := newTestRegistry(DefaultSettings())
	m := NewMatchmaker(g)

	oldest := g.CreateRoom("oldest", 4)
	g.CreateRoom("newer", 4)

	room, err := m.QuickJoin("p0", "P0")
	if err != nil {
		t.Fatalf("quick join: %v", err)
	}
	if room != oldest {
		t.Errorf("joined %s, want oldest room %s", room.ID(), oldest.ID())
	}
}

func TestQuickJoinSkipsFullAndRunningRooms(t *testing.T) {
	g, _ := newTestRegistry(DefaultSettings())
	m := NewMatchmaker(g)

	running := g.CreateRoom("running", 2)
	fillRoom(t, g, running, 2) // auto-starts

	room, err := m.QuickJoin("late", "Late")
	if err != nil {
		t.Fatalf("quick join: %v", err)
	}
	if room == running {
		t.Errorf("quick join seated player in a running room")
	}
}

func TestQuickJoinConcurrentCallersShareRooms(t *testing.T) {
	g, _ := newTestRegistry(DefaultSettings())
	m := NewMatchmaker(g)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.QuickJoin(fmt.Sprintf("p%d", i), "P")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}

	// 10 players at the default capacity of 4 need 3 rooms; a seat is
	// never double-sold and no duplicate rooms appear.
	seated := 0
	for _, room := range g.Rooms() {
		st := room.State()
		if len(st.Players) > 4 {
			t.Errorf("room %s over capacity: %d", st.RoomID, len(st.Players))
		}
		seated += len(st.Players)
	}
	if seated != callers {
		t.Errorf("seated = %d, want %d", seated, callers)
	}
	if rooms := len(g.Rooms()); rooms != 3 {
		t.Errorf("rooms = %d, want 3", rooms)
	}
}
