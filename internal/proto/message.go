package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Ref  string          `json:"ref,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeJoinPrivateRoom = "join_private_room"
	InboundTypeSendMessage     = "send_message"
	InboundTypeListRooms       = "list_rooms"

	OutboundTypeAck   = "ack"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventPrivateMessage = "private_message"
)

// JoinPrivateRoomData asks for the private room shared with Receiver.
type JoinPrivateRoomData struct {
	Receiver string `json:"receiver"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Ref   string `json:"ref,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is fanned out to every subscriber of a room.
type EventMessage struct {
	Room      string    `json:"room"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomJoined acknowledges join_private_room.
type RoomJoined struct {
	Room string `json:"room"`
}

// RoomList acknowledges list_rooms.
type RoomList struct {
	Rooms []string `json:"rooms"`
}

// Error describes a failed request.
type Error struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Resolution string `json:"resolution"`
}

// Refusal is the HTTP body of a rejected request.
type Refusal struct {
	Error Error `json:"error"`
}
