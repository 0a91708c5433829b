package events

// Payload types shared between the auction and gateway packages.

// RoomSummary is the lobby-list view of a room.
type RoomSummary struct {
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name"`
	Status     string `json:"status"`
	Occupancy  int    `json:"occupancy"`
	MaxPlayers int    `json:"max_players"`
}

// RoomListPayload is the payload for a RoomList event.
type RoomListPayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

// PlayerState is the per-player slice of a GameState. Bet values are
// withheld until the round result to preserve suspense.
type PlayerState struct {
	PlayerID        string  `json:"player_id"`
	DisplayName     string  `json:"display_name"`
	RemainingBudget float64 `json:"remaining_budget"`
	HasBet          bool    `json:"has_bet"`
}

// GameState is the payload for every per-room event.
type GameState struct {
	RoomID      string             `json:"room_id"`
	RoomName    string             `json:"room_name"`
	Status      string             `json:"status"`
	RoundNumber int                `json:"round_number,omitempty"`
	Phase       string             `json:"phase,omitempty"`
	Countdown   int                `json:"countdown,omitempty"`
	Players     []PlayerState      `json:"players"`
	WinnerID    string             `json:"winner_id,omitempty"`
	Bets        map[string]float64 `json:"bets,omitempty"`
}

// ErrorPayload is sent only to the connection whose intent was rejected.
type ErrorPayload struct {
	Intent  string `json:"intent"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
