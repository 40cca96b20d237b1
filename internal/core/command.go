package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinPrivateRoom resolves the private room with Receiver and subscribes to it.
	CommandJoinPrivateRoom CommandKind = iota
	// CommandSendMessage appends Body to Room and fans it out.
	CommandSendMessage
	// CommandListRooms lists the types of the caller's rooms.
	CommandListRooms
	// CommandInvalid carries a frame the transport could not decode. Err is
	// reported back in order with the replies to earlier commands.
	CommandInvalid
)

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind
	// Ref is an opaque client correlation id echoed on the reply.
	Ref      string
	Receiver string
	Room     string
	Body     string
	Err      error
}
