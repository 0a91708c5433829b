package auction

// PlayerSession identifies a seated participant and carries their
// depleting time budget. All mutation happens under the owning room's
// lock; budgets are never touched by client input directly.
type PlayerSession struct {
	ID              string
	Name            string
	RemainingBudget float64
	CurrentBet      *float64
	HasBet          bool
}

// NewPlayerSession seats a player with a full budget.
func NewPlayerSession(id, name string, budget float64) *PlayerSession {
	return &PlayerSession{
		ID:              id,
		Name:            name,
		RemainingBudget: budget,
	}
}

// resetBet clears the per-round bet state at the start of a round.
func (p *PlayerSession) resetBet() {
	p.CurrentBet = nil
	p.HasBet = false
}
