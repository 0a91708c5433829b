package auction

import "time"

// Phase is the round state machine's position. Transitions are strictly
// forward within a round; a new round is always a fresh instance.
type Phase string

const (
	PhaseCountdown Phase = "COUNTDOWN"
	PhaseActive    Phase = "ACTIVE"
	PhaseResolving Phase = "RESOLVING"
	PhaseResult    Phase = "RESULT"
)

// bet is one accepted bid. The sequence number breaks ties between bets
// accepted at the same clock instant.
type bet struct {
	seconds    float64
	receivedAt time.Time
	seq        int
}

// round is one bidding cycle. It is owned exclusively by its Room and
// only ever touched under the room's lock.
type round struct {
	phase          Phase
	ticksRemaining int
	clockStart     time.Time
	bets           map[string]bet
	nextSeq        int
	winnerID       string
}

func newRound(countdownTicks int) *round {
	return &round{
		phase:          PhaseCountdown,
		ticksRemaining: countdownTicks,
		bets:           make(map[string]bet),
	}
}

// recordBet stores an accepted bid. At most one entry per player per
// round; callers check HasBet first.
func (r *round) recordBet(playerID string, seconds float64, at time.Time) {
	r.bets[playerID] = bet{seconds: seconds, receivedAt: at, seq: r.nextSeq}
	r.nextSeq++
}

// resolve picks the winner: the strictly greatest bet, ties broken by
// earliest server receipt, then by acceptance order.
func (r *round) resolve() string {
	var winnerID string
	var best bet
	for id, b := range r.bets {
		if winnerID == "" || better(b, best) {
			winnerID = id
			best = b
		}
	}
	return winnerID
}

func better(a, b bet) bool {
	if a.seconds != b.seconds {
		return a.seconds > b.seconds
	}
	if !a.receivedAt.Equal(b.receivedAt) {
		return a.receivedAt.Before(b.receivedAt)
	}
	return a.seq < b.seq
}

// betValues exposes the committed bids for the result broadcast.
func (r *round) betValues() map[string]float64 {
	out := make(map[string]float64, len(r.bets))
	for id, b := range r.bets {
		out[id] = b.seconds
	}
	return out
}
