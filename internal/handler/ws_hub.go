package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Data   any    `json:"data"`
}

// WSConn is one WebSocket connection, bound to a single game seat.
type WSConn struct {
	conn   *websocket.Conn
	gameID string
	power  string
	send   chan []byte
}

// Hub tracks WebSocket connections by game and fans events out to them.
type Hub struct {
	mu    sync.RWMutex
	games map[string]map[*WSConn]bool // gameID -> set of connections
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{games: make(map[string]map[*WSConn]bool)}
}

// Register adds a connection to its game's channel.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.games[c.gameID] == nil {
		h.games[c.gameID] = make(map[*WSConn]bool)
	}
	h.games[c.gameID][c] = true
}

// Unregister removes a connection and closes its send channel. It is safe
// to call more than once.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.games[c.gameID]
	if !ok || !conns[c] {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.games, c.gameID)
	}
	close(c.send)
}

// BroadcastToGame sends an event to every connection of a game.
func (h *Hub) BroadcastToGame(gameID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.games[gameID] {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("power", c.power).Str("gameId", gameID).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.games {
		n += len(conns)
	}
	return n
}

// GameSubscriberCount returns the number of connections watching a game.
func (h *Hub) GameSubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}
