// Package ws is the network gateway: an HTTP router that creates games and
// upgrades players to websockets, and a hub that fans game events out to
// every connection in a game's room.
package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/observability"
)

// Hub tracks the connections of every game room. It implements
// event.Broadcaster and is safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Outbox
	logger *zap.Logger
}

// NewHub creates an empty Hub.
//
// Precondition: logger must be non-nil.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{rooms: make(map[string]map[string]*Outbox), logger: logger}
}

// Join adds o to gameID's room.
func (h *Hub) Join(gameID string, o *Outbox) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[string]*Outbox)
		h.rooms[gameID] = room
	}
	room[o.ID()] = o
}

// Leave removes o from gameID's room and closes it.
//
// Postcondition: returns true when o was the player's last connection in
// the room.
func (h *Hub) Leave(gameID string, o *Outbox) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	o.Close()
	room := h.rooms[gameID]
	delete(room, o.ID())
	if len(room) == 0 {
		delete(h.rooms, gameID)
	}
	for _, other := range room {
		if other.PlayerID() == o.PlayerID() {
			return false
		}
	}
	return true
}

// Connections returns the number of connections in gameID's room.
func (h *Hub) Connections(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// Broadcast encodes ev once and queues it on every connection of the room.
// A full connection loses the frame.
func (h *Hub) Broadcast(gameID string, ev event.Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encoding event", observability.Game(gameID), zap.String(observability.KeyEvent, string(ev.Name)), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, o := range h.rooms[gameID] {
		if err := o.Push(frame); err != nil {
			h.logger.Warn("dropping event",
				observability.Game(gameID),
				observability.Player(o.PlayerID()),
				zap.String(observability.KeyEvent, string(ev.Name)),
				zap.Error(err),
			)
		}
	}
}

// Send queues ev on a single connection.
func (h *Hub) Send(o *Outbox, ev event.Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encoding event", zap.String(observability.KeyEvent, string(ev.Name)), zap.Error(err))
		return
	}
	if err := o.Push(frame); err != nil {
		h.logger.Warn("dropping event", observability.Player(o.PlayerID()), zap.Error(err))
	}
}
