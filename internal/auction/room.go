package auction

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"timeauction/backend/internal/auction/events"
)

// Status is a room's lifecycle state.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
)

// notifier is what a room needs from its registry to broadcast changes.
// publishRoomState must be safe to call while the room's lock is held;
// publishRoomList must only be called with no room lock held, since it
// snapshots every room.
type notifier interface {
	publishRoomState(typ events.Type, state events.GameState)
	publishRoomList()
}

// Room is an isolated game session with a bounded roster. All mutable
// state is guarded by mu; every mutating operation on a room is
// serialized through it, including timer callbacks.
type Room struct {
	id         string
	name       string
	maxPlayers int
	minPlayers int
	settings   Settings
	clock      clockwork.Clock
	notify     notifier

	mu          sync.Mutex
	status      Status
	players     []*PlayerSession
	byID        map[string]*PlayerSession
	roundNumber int
	round       *round
	gen         int // bumps on every round (re)start; stale timers check it
	timer       clockwork.Timer
	closed      bool
}

func newRoom(id, name string, maxPlayers int, settings Settings, clock clockwork.Clock, notify notifier) *Room {
	return &Room{
		id:         id,
		name:       name,
		maxPlayers: maxPlayers,
		minPlayers: settings.MinPlayers,
		settings:   settings,
		clock:      clock,
		notify:     notify,
		status:     StatusWaiting,
		byID:       make(map[string]*PlayerSession),
	}
}

// ID returns the room's identifier.
func (r *Room) ID() string { return r.id }

// Name returns the room's display name.
func (r *Room) Name() string { return r.name }

// Summary returns the lobby-list view of the room.
func (r *Room) Summary() events.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return events.RoomSummary{
		RoomID:     r.id,
		RoomName:   r.name,
		Status:     string(r.status),
		Occupancy:  len(r.players),
		MaxPlayers: r.maxPlayers,
	}
}

// State returns a full game-state snapshot.
func (r *Room) State() events.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Joinable reports whether the room currently accepts joins.
func (r *Room) Joinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == StatusWaiting && len(r.players) < r.maxPlayers
}

func (r *Room) stateLocked() events.GameState {
	st := events.GameState{
		RoomID:      r.id,
		RoomName:    r.name,
		Status:      string(r.status),
		RoundNumber: r.roundNumber,
		Players:     make([]events.PlayerState, 0, len(r.players)),
	}
	for _, p := range r.players {
		st.Players = append(st.Players, events.PlayerState{
			PlayerID:        p.ID,
			DisplayName:     p.Name,
			RemainingBudget: p.RemainingBudget,
			HasBet:          p.HasBet,
		})
	}
	if r.round != nil {
		st.Phase = string(r.round.phase)
		st.Countdown = r.round.ticksRemaining
		if r.round.phase == PhaseResult {
			st.WinnerID = r.round.winnerID
			st.Bets = r.round.betValues()
		}
	}
	return st
}

// Join seats a player at the end of the roster. Reaching the seat count
// starts the game: round 1 enters its countdown.
func (r *Room) Join(p *PlayerSession) error {
	r.mu.Lock()
	if r.closed || r.status != StatusWaiting {
		r.mu.Unlock()
		return ErrInvalidState
	}
	if len(r.players) >= r.maxPlayers {
		r.mu.Unlock()
		return ErrRoomFull
	}
	if _, ok := r.byID[p.ID]; ok {
		r.mu.Unlock()
		return ErrInvalidState
	}
	r.players = append(r.players, p)
	r.byID[p.ID] = p
	r.notify.publishRoomState(events.TypePlayerJoined, r.stateLocked())

	if len(r.players) == r.maxPlayers {
		r.startGameLocked()
	}
	r.mu.Unlock()

	r.notify.publishRoomList()
	return nil
}

// Leave removes a player. It reports whether the room is now empty, in
// which case the registry destroys it. A leave during an active round
// re-checks bet completeness against the remaining occupants.
func (r *Room) Leave(playerID string) (empty bool, err error) {
	r.mu.Lock()
	p, ok := r.byID[playerID]
	if !ok {
		r.mu.Unlock()
		return false, ErrNotFound
	}
	delete(r.byID, playerID)
	for i, q := range r.players {
		if q == p {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}

	if len(r.players) == 0 {
		r.closeLocked()
		r.mu.Unlock()
		return true, nil
	}

	r.notify.publishRoomState(events.TypePlayerLeft, r.stateLocked())
	if r.round != nil && r.round.phase == PhaseActive && r.allBetLocked() {
		r.resolveLocked()
	}
	r.mu.Unlock()

	r.notify.publishRoomList()
	return false, nil
}

// PlaceBet timestamps the intent at server receipt and converts it to a
// bid of clock-elapsed seconds. An unpayable bid aborts and restarts the
// whole round with budgets untouched: a bid must be honorable against
// the budget snapshot at bid time.
func (r *Room) PlaceBet(playerID string) error {
	r.mu.Lock()
	if r.closed || r.status != StatusInProgress || r.round == nil || r.round.phase != PhaseActive {
		r.mu.Unlock()
		return ErrInvalidState
	}
	p, ok := r.byID[playerID]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if p.HasBet {
		r.mu.Unlock()
		return ErrAlreadyBet
	}

	now := r.clock.Now()
	betSeconds := now.Sub(r.round.clockStart).Seconds()
	if betSeconds > p.RemainingBudget {
		log.Info().
			Str("room_id", r.id).
			Str("player_id", playerID).
			Float64("bet_seconds", betSeconds).
			Float64("remaining_budget", p.RemainingBudget).
			Msg("unpayable bet, restarting round")
		r.startRoundLocked()
		r.notify.publishRoomState(events.TypeRoundRestarted, r.stateLocked())
		r.mu.Unlock()
		return ErrInsufficientBudget
	}

	p.RemainingBudget -= betSeconds
	p.CurrentBet = &betSeconds
	p.HasBet = true
	r.round.recordBet(playerID, betSeconds, now)
	r.notify.publishRoomState(events.TypeBetAccepted, r.stateLocked())

	if r.allBetLocked() {
		r.resolveLocked()
	}
	r.mu.Unlock()
	return nil
}

// startGameLocked transitions WAITING → IN_PROGRESS and begins round 1.
func (r *Room) startGameLocked() {
	r.status = StatusInProgress
	r.roundNumber = 1
	log.Info().Str("room_id", r.id).Int("players", len(r.players)).Msg("game started")
	r.startRoundLocked()
}

// startRoundLocked begins a fresh round in COUNTDOWN and arms the first
// tick. Bumping gen invalidates any timer armed for the previous round.
func (r *Room) startRoundLocked() {
	r.gen++
	gen := r.gen
	r.round = newRound(r.settings.CountdownTicks)
	r.notify.publishRoomState(events.TypeRoundCountdown, r.stateLocked())
	r.armLocked(r.settings.TickInterval, func() { r.countdownTick(gen) })
}

// armLocked schedules the room's single pending timer callback.
func (r *Room) armLocked(d time.Duration, f func()) {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = r.clock.AfterFunc(d, f)
}

// countdownTick fires once per second during COUNTDOWN. On the final
// tick it clears every bet, records the clock start, and opens bidding.
func (r *Room) countdownTick(gen int) {
	r.mu.Lock()
	if r.closed || gen != r.gen || r.round == nil || r.round.phase != PhaseCountdown {
		r.mu.Unlock()
		return
	}
	r.round.ticksRemaining--
	if r.round.ticksRemaining > 0 {
		r.notify.publishRoomState(events.TypeRoundCountdown, r.stateLocked())
		r.armLocked(r.settings.TickInterval, func() { r.countdownTick(gen) })
		r.mu.Unlock()
		return
	}

	for _, p := range r.players {
		p.resetBet()
	}
	r.round.clockStart = r.clock.Now()
	r.round.phase = PhaseActive
	r.notify.publishRoomState(events.TypeRoundStarted, r.stateLocked())
	r.mu.Unlock()
}

// allBetLocked recomputes bet completeness against current occupancy,
// not the roster at round start, so a mid-round leave never stalls it.
func (r *Room) allBetLocked() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.HasBet {
			return false
		}
	}
	return true
}

// resolveLocked adjudicates the round and schedules the next one after
// the result display delay.
func (r *Room) resolveLocked() {
	r.round.phase = PhaseResolving
	r.round.winnerID = r.round.resolve()
	r.round.phase = PhaseResult
	log.Info().
		Str("room_id", r.id).
		Int("round", r.roundNumber).
		Str("winner_id", r.round.winnerID).
		Msg("round resolved")
	r.notify.publishRoomState(events.TypeRoundResult, r.stateLocked())

	gen := r.gen
	r.armLocked(r.settings.ResultDelay, func() { r.advanceRound(gen) })
}

// advanceRound fires after the result display delay: either the next
// round begins, or the game is over.
func (r *Room) advanceRound(gen int) {
	r.mu.Lock()
	if r.closed || gen != r.gen || r.round == nil || r.round.phase != PhaseResult {
		r.mu.Unlock()
		return
	}
	if r.roundNumber < r.settings.TotalRounds && r.solventPlayersLocked() >= 2 {
		r.roundNumber++
		r.startRoundLocked()
		r.mu.Unlock()
		return
	}

	r.status = StatusFinished
	r.round = nil
	log.Info().Str("room_id", r.id).Int("rounds", r.roundNumber).Msg("game finished")
	r.notify.publishRoomState(events.TypeGameFinished, r.stateLocked())
	r.mu.Unlock()

	r.notify.publishRoomList()
}

func (r *Room) solventPlayersLocked() int {
	n := 0
	for _, p := range r.players {
		if p.RemainingBudget > 0 {
			n++
		}
	}
	return n
}

// closeLocked stops the room's timer and marks it dead so that stale
// callbacks become no-ops.
func (r *Room) closeLocked() {
	r.closed = true
	r.round = nil
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
