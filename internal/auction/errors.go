package auction

import "errors"

// ErrRoomFull is returned when a join would exceed the room's seat count.
var ErrRoomFull = errors.New("room is full")

// ErrInvalidState is returned when an action is attempted outside the
// phase that permits it.
var ErrInvalidState = errors.New("invalid room state")

// ErrAlreadyBet is returned on a second bet within one round; the first
// bet stands.
var ErrAlreadyBet = errors.New("already bet this round")

// ErrInsufficientBudget is returned when a bet exceeds the player's
// remaining budget. The round restarts for everyone; no budget changes.
var ErrInsufficientBudget = errors.New("insufficient budget")

// ErrNotFound is returned for an unknown room or player ID.
var ErrNotFound = errors.New("not found")
