package core

import "github.com/vovakirdan/pairchat/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage notifies subscribers about a message appended to a room.
	EventRoomMessage EventKind = iota
	// EventRoomJoined answers CommandJoinPrivateRoom with the resolved room.
	EventRoomJoined
	// EventRoomList answers CommandListRooms.
	EventRoomList
	// EventError notifies the originating client about a failed command.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Ref     string
	Room    store.ID
	Message store.Message
	Rooms   []string // For EventRoomList
	Err     error    // For EventError
}
