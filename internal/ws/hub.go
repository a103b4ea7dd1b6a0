package ws

import (
	"sync"
)

// Hub tracks websocket clients per room. RoomChanged only flags clients;
// each client reloads and projects the room for its own viewer.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

func (h *Hub) RoomChanged(roomID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.markDirty()
	}
}

func (h *Hub) subscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[c.roomID]
	if !ok {
		subs = make(map[*client]struct{})
		h.rooms[c.roomID] = subs
	}
	subs[c] = struct{}{}
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.rooms[c.roomID]
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.rooms, c.roomID)
	}
}

// Subscribers reports how many clients watch roomID.
func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
