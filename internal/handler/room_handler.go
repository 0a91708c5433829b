package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"timeauction/backend/internal/auction"
)

// RoomHandler is the REST boundary the lobby UI reads: room listings,
// room detail, and quick join. All game mutation beyond quick join goes
// over the websocket.
type RoomHandler struct {
	registry   *auction.Registry
	matchmaker *auction.Matchmaker
}

// NewRoomHandler creates the REST handler.
func NewRoomHandler(registry *auction.Registry, matchmaker *auction.Matchmaker) *RoomHandler {
	return &RoomHandler{registry: registry, matchmaker: matchmaker}
}

// Routes sets up the time-auction REST surface.
func (h *RoomHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/rooms", h.ListRooms)
	r.Get("/rooms/active", h.ListActiveRooms)
	r.Get("/rooms/{roomID}", h.GetRoom)
	r.Post("/quick-join", h.QuickJoin)
	return r
}

// ListRooms returns every room summary in creation order.
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.registry.Summaries())
}

// ListActiveRooms returns only the rooms a player could join right now.
func (h *RoomHandler) ListActiveRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.registry.OpenRooms()
	summaries := make([]any, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, room.Summary())
	}
	h.respondJSON(w, http.StatusOK, summaries)
}

// GetRoom returns one room's full game state.
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	room, err := h.registry.Room(roomID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "room not found")
		return
	}
	h.respondJSON(w, http.StatusOK, room.State())
}

// QuickJoin seats the caller in an open room, creating one if needed,
// and returns the resulting room state.
func (h *RoomHandler) QuickJoin(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		h.respondError(w, http.StatusBadRequest, "playerId is required")
		return
	}
	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = playerID
	}

	room, err := h.matchmaker.QuickJoin(playerID, displayName)
	if err != nil {
		if errors.Is(err, auction.ErrInvalidState) {
			h.respondError(w, http.StatusConflict, err.Error())
			return
		}
		log.Error().Err(err).Str("player_id", playerID).Msg("quick join failed")
		h.respondError(w, http.StatusInternalServerError, "quick join failed")
		return
	}
	h.respondJSON(w, http.StatusOK, room.State())
}

func (h *RoomHandler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *RoomHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
