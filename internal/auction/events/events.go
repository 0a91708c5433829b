package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of event carried by an Envelope.
type Type string

const (
	TypeRoomList       Type = "RoomList"
	TypePlayerJoined   Type = "PlayerJoined"
	TypePlayerLeft     Type = "PlayerLeft"
	TypeRoundCountdown Type = "RoundCountdown"
	TypeRoundStarted   Type = "RoundStarted"
	TypeBetAccepted    Type = "BetAccepted"
	TypeRoundRestarted Type = "RoundRestarted"
	TypeRoundResult    Type = "RoundResult"
	TypeGameFinished   Type = "GameFinished"
	TypeError          Type = "Error"
)

// Envelope is the wire format for every event delivered over the
// synchronization channel, broker-side and websocket-side alike.
type Envelope struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps a payload into an Envelope with a fresh event ID.
func New(typ Type, roomID string, at time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:        uuid.New().String(),
		Type:      typ,
		RoomID:    roomID,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Marshal renders the envelope for the wire.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses a wire envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}
