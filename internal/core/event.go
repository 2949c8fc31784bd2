package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventOnlineUsers delivers the presence snapshot after every change.
	EventOnlineUsers EventKind = iota
	// EventCodeUpdate delivers a code change to the other room members.
	EventCodeUpdate
	// EventUserTyping notifies that a user is editing a line of a file.
	EventUserTyping
	// EventUserStoppedTyping clears a typing indicator.
	EventUserStoppedTyping
	// EventNewMessage delivers a chat message to all grouped connections.
	EventNewMessage
	// EventSignal relays a WebRTC offer/answer/candidate payload.
	EventSignal
	// EventError notifies the affected connection about a domain error.
	EventError
)

// String returns the wire name of the event kind, also used as metric label.
func (k EventKind) String() string {
	switch k {
	case EventOnlineUsers:
		return "onlineUsers"
	case EventCodeUpdate:
		return "codeUpdate"
	case EventUserTyping:
		return "userTyping"
	case EventUserStoppedTyping:
		return "userStoppedTyping"
	case EventNewMessage:
		return "newMessage"
	case EventSignal:
		return "signal"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
// Broadcast events round-trip through the bus as JSON.
type Event struct {
	Kind   EventKind    `json:"kind"`
	Room   string       `json:"room,omitempty"`
	Users  []string     `json:"users,omitempty"`
	Code   string       `json:"code,omitempty"`
	File   string       `json:"file,omitempty"`
	Typing *TypingInfo  `json:"typing,omitempty"`
	Chat   *ChatMessage `json:"chat,omitempty"`
	Signal *Signal      `json:"signal,omitempty"`
	Error  *CoreError   `json:"error,omitempty"`
}

// TypingInfo describes a live typing indicator.
type TypingInfo struct {
	Line     int    `json:"line"`
	Username string `json:"username,omitempty"`
	UserID   string `json:"user_id"`
	File     string `json:"file"`
	TS       int64  `json:"ts"`
}

// ChatMessage is a chat message in live fan-out. Persistence is a separate
// REST call; the hub never stores these.
type ChatMessage struct {
	Room     string `json:"room"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Body     string `json:"body"`
	TS       int64  `json:"ts"`
}

// Signal is an opaque WebRTC signaling payload relayed between peers.
type Signal struct {
	Kind    string          `json:"kind"` // offer, answer or candidate
	Payload json.RawMessage `json:"payload"`
}
