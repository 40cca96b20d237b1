package core

import (
	"sync"

	"github.com/vovakirdan/pairchat/internal/store"
)

// Hub tracks live clients and the broadcast channel of every room with subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[store.ID]*Room
}

// NewHub creates a new chat hub instance.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[store.ID]*Room),
	}
}

// RegisterClient makes c reachable by its connection id.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// UnregisterClient removes the client with connID from every room and closes it.
// It reports false if no such client was registered.
func (h *Hub) UnregisterClient(connID string) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return nil, false
	}
	delete(h.clients, connID)

	for roomID := range c.rooms {
		if room, ok := h.rooms[roomID]; ok {
			room.RemoveClient(c)
			if room.Empty() {
				delete(h.rooms, roomID)
			}
		}
	}
	clear(c.rooms)
	c.close()
	return c, true
}

// Subscribe joins c to the broadcast channel of roomID. It is a no-op for a
// client that is no longer registered.
func (h *Hub) Subscribe(c *Client, roomID store.ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.ID] != c {
		return false
	}
	room, ok := h.rooms[roomID]
	if !ok {
		room = NewRoom(roomID)
		h.rooms[roomID] = room
	}
	c.rooms[roomID] = struct{}{}
	return room.AddClient(c)
}

// Broadcast offers event to every subscriber of roomID.
func (h *Hub) Broadcast(roomID store.ID, event *Event) (delivered, dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return 0, 0
	}
	return room.Broadcast(event)
}

// Subscribers returns the number of clients subscribed to roomID.
func (h *Hub) Subscribers(roomID store.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[roomID]; ok {
		return room.Len()
	}
	return 0
}

// Client returns the registered client with connID.
func (h *Hub) Client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
