package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom authenticates the connection and subscribes it to a room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the connection from a room.
	CommandLeaveRoom
	// CommandCodeChange broadcasts a code update to the other room members.
	CommandCodeChange
	// CommandTyping refreshes the sender's typing indicator.
	CommandTyping
	// CommandStopTyping explicitly clears the sender's typing indicator.
	CommandStopTyping
	// CommandSendChat fans a chat message out to the room, sender included.
	CommandSendChat
	// CommandSignal relays a WebRTC signaling payload to the room's peers.
	CommandSignal
	// CommandLogout performs leave cleanup for every joined room without
	// closing the connection. Covers non-navigation exit paths.
	CommandLogout
)

// Command represents an action requested by a client connection.
type Command struct {
	Kind     CommandKind
	Room     string
	Token    string // join/leave credential
	Code     string
	File     string
	Line     int
	UserID   string // typing payload identity, client-reported
	Username string
	Body     string // chat body
	Signal   *Signal
}
