package core

import "github.com/vovakirdan/pairchat/internal/store"

// Room is the broadcast channel of a durable room: the clients currently subscribed to it.
type Room struct {
	ID      store.ID
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(id store.ID) *Room {
	return &Room{
		ID:      id,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Broadcast offers an event to every client in the room. A full or closed
// client queue drops the event for that client only.
func (r *Room) Broadcast(event *Event) (delivered, dropped int) {
	for client := range r.clients {
		if client.deliver(event) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// Len returns the number of subscribed clients.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
