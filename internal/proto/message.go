package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin       = "join"
	InboundTypeLeave      = "leave"
	InboundTypeCodeChange = "codeChange"
	InboundTypeTyping     = "typing"
	InboundTypeStopTyping = "stoppedTyping"
	InboundTypeMsg        = "sendMessage"
	InboundTypeOffer      = "offer"
	InboundTypeAnswer     = "answer"
	InboundTypeCandidate  = "candidate"
	InboundTypeLogout     = "logout"
	InboundTypeDisconnect = "disconnectUser"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventOnlineUsers       = "onlineUsers"
	EventCodeUpdate        = "codeUpdate"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventNewMessage        = "newMessage"
)

var inboundTypes = map[string]struct{}{
	InboundTypeJoin:       {},
	InboundTypeLeave:      {},
	InboundTypeCodeChange: {},
	InboundTypeTyping:     {},
	InboundTypeStopTyping: {},
	InboundTypeMsg:        {},
	InboundTypeOffer:      {},
	InboundTypeAnswer:     {},
	InboundTypeCandidate:  {},
	InboundTypeLogout:     {},
	InboundTypeDisconnect: {},
}

// KnownInboundType reports whether t is one of the accepted inbound message
// types. Anything else must not be used as a metric label value.
func KnownInboundType(t string) bool {
	_, ok := inboundTypes[t]
	return ok
}

// JoinData requests to join a room's broadcast group. The token is the
// bearer credential issued by the auth API; it is verified on every join.
type JoinData struct {
	Room  string `json:"roomId"`
	Token string `json:"token"`
}

// LeaveData requests to leave a room's broadcast group.
type LeaveData struct {
	Room  string `json:"roomId"`
	Token string `json:"token,omitempty"`
}

// CodeChangeData carries a full-document code update for live broadcast.
type CodeChangeData struct {
	Room string `json:"roomId"`
	Code string `json:"code"`
	File string `json:"filename,omitempty"`
}

// TypingData signals that a user is editing a given line of a file.
type TypingData struct {
	Room     string `json:"roomId"`
	Line     int    `json:"lineNumber"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
	File     string `json:"filename"`
}

// StopTypingData explicitly clears a typing indicator.
type StopTypingData struct {
	Room   string `json:"roomId"`
	UserID string `json:"userId"`
	File   string `json:"filename"`
}

// MsgData is a chat message for live fan-out. Persistence happens via a
// separate REST call; this event only reaches currently grouped connections.
type MsgData struct {
	Room     string `json:"roomId"`
	Body     string `json:"body"`
	Username string `json:"username,omitempty"`
}

// SignalData wraps a WebRTC signaling payload (offer, answer or ICE
// candidate). The server relays it verbatim to the other grouped connections.
type SignalData struct {
	Room    string          `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// OnlineUsersData is the presence snapshot broadcast after every change.
type OnlineUsersData struct {
	Room  string   `json:"roomId"`
	Users []string `json:"users"`
}

// CodeUpdateData delivers a code change to the other room members.
type CodeUpdateData struct {
	Room string `json:"roomId"`
	Code string `json:"code"`
	File string `json:"filename,omitempty"`
}

// UserTypingData renders a typing indicator on the receiving side.
type UserTypingData struct {
	Room     string `json:"roomId"`
	Line     int    `json:"lineNumber"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
	File     string `json:"filename"`
	TS       int64  `json:"timestamp"`
}

// UserStoppedTypingData clears a typing indicator.
type UserStoppedTypingData struct {
	Room   string `json:"roomId"`
	UserID string `json:"userId"`
	File   string `json:"filename"`
	TS     int64  `json:"timestamp"`
}

// NewMessageData delivers a chat message to all grouped connections.
type NewMessageData struct {
	ID       string `json:"id,omitempty"`
	Room     string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Body     string `json:"body"`
	TS       int64  `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
