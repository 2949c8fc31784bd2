package core

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/bus"
	"github.com/vovakirdan/coderoom-server/internal/metrics"
	"github.com/vovakirdan/coderoom-server/internal/store"
	"github.com/vovakirdan/coderoom-server/internal/utils"
)

// RoomDirectory is the slice of persistence the membership gate consults.
// It is re-queried on every join attempt, never cached, so membership
// revocation takes effect on the next join.
type RoomDirectory interface {
	GetRoomByID(ctx context.Context, id string) (*store.Room, error)
	ListMembers(ctx context.Context, roomID string) ([]string, error)
}

// TokenVerifier validates a join credential and yields the embedded identity.
type TokenVerifier interface {
	VerifyToken(token string) (userID, username string, err error)
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub owns all realtime state: the connection registry, room broadcast
// groups, the presence tracker and the typing debouncer. Every mutation
// happens on the Run goroutine; commands, timer expiries and bus deliveries
// all funnel through its select loop, so no field needs a lock.
type Hub struct {
	id       string // instance identity on the bus
	dir      RoomDirectory
	verifier TokenVerifier
	bus      bus.Bus
	log      *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand

	clients  map[string]*Client // connection registry, by connection ID
	rooms    map[string]*Room
	presence *Presence
	typing   *typingTracker
}

// NewHub creates a hub. dir and verifier are the external collaborators for
// membership and credential checks; b carries room broadcasts.
func NewHub(dir RoomDirectory, verifier TokenVerifier, b bus.Bus, logger *zerolog.Logger) *Hub {
	return &Hub{
		id:         utils.NewID(),
		dir:        dir,
		verifier:   verifier,
		bus:        b,
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand, 64),
		clients:    make(map[string]*Client),
		rooms:      make(map[string]*Room),
		presence:   NewPresence(),
		typing:     newTypingTracker(typingTTL),
	}
}

// RegisterClient adds a connection to the registry. No identity is bound
// until a join carries a valid credential.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient runs the unconditional disconnect cleanup: the connection
// leaves its broadcast groups, presence is updated and the new snapshots are
// broadcast. Callers register this as a finalizer on the connection
// lifecycle so abrupt transport drops clean up exactly like explicit leaves.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Run processes events until ctx is cancelled. Each event is handled to
// completion before the next one; collaborator lookups block only this loop.
func (h *Hub) Run(ctx context.Context) {
	busCh := h.bus.Events()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(ctx, c)
		case c := <-h.unregister:
			h.handleUnregister(ctx, c)
		case cc := <-h.commands:
			h.handleCommand(ctx, cc.client, cc.cmd)
		case exp := <-h.typing.expired:
			h.handleTypingExpiry(ctx, exp)
		case env, ok := <-busCh:
			if !ok {
				busCh = nil
				continue
			}
			h.deliver(&env)
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	h.clients[c.ID] = c
	h.log.Debug().Str("conn_id", c.ID).Msg("connection registered")

	// Forward this connection's commands into the dispatch loop. The
	// forwarder exits when the connection is unregistered.
	go func() {
		for {
			select {
			case <-c.done:
				return
			case <-ctx.Done():
				return
			case cmd := <-c.Commands:
				select {
				case h.commands <- clientCommand{client: c, cmd: cmd}:
				case <-c.done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

func (h *Hub) handleUnregister(ctx context.Context, c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}

	for roomID := range c.Rooms {
		h.removeFromRoom(ctx, c, roomID)
	}

	delete(h.clients, c.ID)
	close(c.done)
	close(c.Events)
	h.log.Debug().Str("conn_id", c.ID).Str("user_id", c.UserID).Msg("connection unregistered")
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	// Commands may still be in flight after a disconnect raced them.
	if _, ok := h.clients[c.ID]; !ok {
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.handleJoin(ctx, c, cmd)
	case CommandLeaveRoom:
		h.handleLeave(ctx, c, cmd)
	case CommandCodeChange:
		h.handleCodeChange(ctx, c, cmd)
	case CommandTyping:
		h.handleTyping(ctx, c, cmd)
	case CommandStopTyping:
		h.handleStopTyping(ctx, c, cmd)
	case CommandSendChat:
		h.handleSendChat(ctx, c, cmd)
	case CommandSignal:
		h.handleSignal(ctx, c, cmd)
	case CommandLogout:
		h.handleLogout(ctx, c)
	default:
		h.sendError(c, coreError(ErrCodeBadRequest, "unknown command"))
	}
}

// handleJoin verifies the credential, consults the membership gate and, on
// success, groups the connection and marks the user online.
func (h *Hub) handleJoin(ctx context.Context, c *Client, cmd *Command) {
	if cmd.Room == "" {
		h.sendError(c, coreError(ErrCodeBadRequest, "room is required"))
		return
	}

	userID, username, err := h.verifier.VerifyToken(cmd.Token)
	if err != nil {
		metrics.JoinRejected.WithLabelValues("invalid_credential").Inc()
		h.log.Debug().Err(err).Str("conn_id", c.ID).Msg("join with invalid credential")
		h.sendError(c, coreError(ErrCodeInvalidCredential, "invalid credential"))
		return
	}

	room, err := h.dir.GetRoomByID(ctx, cmd.Room)
	if errors.Is(err, store.ErrNotFound) {
		metrics.JoinRejected.WithLabelValues("room_not_found").Inc()
		h.sendError(c, coreError(ErrCodeRoomNotFound, "room not found"))
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("room_id", cmd.Room).Msg("room lookup failed")
		h.sendError(c, coreError(ErrCodeUnavailable, "room lookup failed"))
		return
	}

	members, err := h.dir.ListMembers(ctx, room.ID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", room.ID).Msg("member lookup failed")
		h.sendError(c, coreError(ErrCodeUnavailable, "room lookup failed"))
		return
	}

	if userID != room.OwnerID && !slices.Contains(members, userID) {
		metrics.JoinRejected.WithLabelValues("not_authorized").Inc()
		h.sendError(c, coreError(ErrCodeNotAuthorized, "you are not a member of this room"))
		return
	}

	// The directory lookups above are suspension points; re-check the
	// registry instead of trusting pre-lookup state.
	if _, ok := h.clients[c.ID]; !ok {
		return
	}

	c.UserID = userID
	c.Username = username

	r := h.room(cmd.Room)
	if !r.Add(c) {
		h.sendError(c, coreError(ErrCodeAlreadyJoined, "already joined"))
		return
	}
	c.Rooms[cmd.Room] = struct{}{}
	h.presence.Add(userID, c.ID)

	h.log.Info().Str("room_id", cmd.Room).Str("user_id", userID).Str("conn_id", c.ID).Msg("joined room")
	h.broadcastPresence(ctx, cmd.Room)
}

func (h *Hub) handleLeave(ctx context.Context, c *Client, cmd *Command) {
	r, ok := h.rooms[cmd.Room]
	if !ok {
		h.sendError(c, coreError(ErrCodeRoomNotFound, "room not found"))
		return
	}
	if !r.Has(c.ID) {
		h.sendError(c, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}
	h.removeFromRoom(ctx, c, cmd.Room)
}

// handleLogout mirrors leave cleanup for every joined room. Fired by the
// logout and disconnectUser inbound events, which cover exits that skip the
// normal leave path without dropping the transport.
func (h *Hub) handleLogout(ctx context.Context, c *Client) {
	for roomID := range c.Rooms {
		h.removeFromRoom(ctx, c, roomID)
	}
}

func (h *Hub) handleCodeChange(ctx context.Context, c *Client, cmd *Command) {
	if _, ok := c.Rooms[cmd.Room]; !ok {
		h.sendError(c, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}

	// Last write wins: the hub relays snapshots as-is and two rapid edits
	// from different users can clobber each other.
	h.broadcast(ctx, cmd.Room, c.ID, &Event{
		Kind: EventCodeUpdate,
		Room: cmd.Room,
		Code: cmd.Code,
		File: cmd.File,
	})
}

func (h *Hub) handleTyping(ctx context.Context, c *Client, cmd *Command) {
	if !validTypingPayload(cmd) {
		h.log.Debug().Str("conn_id", c.ID).Msg("dropping typing event with invalid payload")
		return
	}
	if _, ok := c.Rooms[cmd.Room]; !ok {
		h.log.Debug().Str("conn_id", c.ID).Str("room_id", cmd.Room).Msg("dropping typing event from ungrouped connection")
		return
	}

	key := typingKey{Room: cmd.Room, UserID: cmd.UserID, File: cmd.File}
	h.typing.Touch(key, cmd.Line, cmd.Username)

	h.broadcast(ctx, cmd.Room, c.ID, &Event{
		Kind: EventUserTyping,
		Room: cmd.Room,
		Typing: &TypingInfo{
			Line:     cmd.Line,
			Username: cmd.Username,
			UserID:   cmd.UserID,
			File:     cmd.File,
			TS:       time.Now().UnixMilli(),
		},
	})
}

func (h *Hub) handleStopTyping(ctx context.Context, c *Client, cmd *Command) {
	if !validTypingPayload(cmd) {
		h.log.Debug().Str("conn_id", c.ID).Msg("dropping stop-typing event with invalid payload")
		return
	}

	key := typingKey{Room: cmd.Room, UserID: cmd.UserID, File: cmd.File}
	if !h.typing.Stop(key) {
		return
	}
	h.broadcastStoppedTyping(ctx, key, c.ID)
}

func (h *Hub) handleTypingExpiry(ctx context.Context, exp typingExpiry) {
	if !h.typing.Expire(exp) {
		return
	}
	h.broadcastStoppedTyping(ctx, exp.key, "")
}

func (h *Hub) handleSendChat(ctx context.Context, c *Client, cmd *Command) {
	if _, ok := c.Rooms[cmd.Room]; !ok {
		h.sendError(c, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}

	// Fan-out only; persistence is the chat REST endpoint's concern. The
	// identity comes from the bound connection, not the payload.
	h.broadcast(ctx, cmd.Room, "", &Event{
		Kind: EventNewMessage,
		Room: cmd.Room,
		Chat: &ChatMessage{
			Room:     cmd.Room,
			UserID:   c.UserID,
			Username: c.Username,
			Body:     cmd.Body,
			TS:       time.Now().UnixMilli(),
		},
	})
}

func (h *Hub) handleSignal(ctx context.Context, c *Client, cmd *Command) {
	if _, ok := c.Rooms[cmd.Room]; !ok {
		h.sendError(c, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}

	h.broadcast(ctx, cmd.Room, c.ID, &Event{
		Kind:   EventSignal,
		Room:   cmd.Room,
		Signal: cmd.Signal,
	})
}

// removeFromRoom is the single cleanup path shared by leave, logout and
// disconnect, so all three leave identical state behind.
func (h *Hub) removeFromRoom(ctx context.Context, c *Client, roomID string) {
	r, ok := h.rooms[roomID]
	if !ok {
		return
	}

	r.Remove(c)
	delete(c.Rooms, roomID)

	if c.UserID != "" {
		for _, key := range h.typing.StopAll(roomID, c.UserID) {
			h.broadcastStoppedTyping(ctx, key, "")
		}
		if len(c.Rooms) == 0 {
			h.presence.Remove(c.UserID, c.ID)
		}
	}

	h.broadcastPresence(ctx, roomID)

	if r.Empty() {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) room(id string) *Room {
	r, ok := h.rooms[id]
	if !ok {
		r = NewRoom(id)
		h.rooms[id] = r
	}
	return r
}

func (h *Hub) broadcastPresence(ctx context.Context, roomID string) {
	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	h.broadcast(ctx, roomID, "", &Event{
		Kind:  EventOnlineUsers,
		Room:  roomID,
		Users: r.OnlineUsers(h.presence),
	})
}

func (h *Hub) broadcastStoppedTyping(ctx context.Context, key typingKey, senderConn string) {
	h.broadcast(ctx, key.Room, senderConn, &Event{
		Kind: EventUserStoppedTyping,
		Room: key.Room,
		Typing: &TypingInfo{
			UserID: key.UserID,
			File:   key.File,
			TS:     time.Now().UnixMilli(),
		},
	})
}

// broadcast publishes a room event to the bus. Delivery happens when the
// envelope comes back through the Run loop, preserving publish order.
func (h *Hub) broadcast(ctx context.Context, roomID, senderConn string, ev *Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("marshal broadcast event")
		return
	}

	metrics.BroadcastsTotal.WithLabelValues(ev.Kind.String()).Inc()

	env := bus.Envelope{
		Room:   roomID,
		Origin: h.id,
		Sender: senderConn,
		Event:  data,
	}
	if err := h.bus.Publish(ctx, env); err != nil {
		h.log.Warn().Err(err).Str("room_id", roomID).Msg("bus publish failed")
	}
}

// deliver fans a bus envelope out to the locally grouped connections. The
// sender is excluded only on the instance it is connected to.
func (h *Hub) deliver(env *bus.Envelope) {
	r, ok := h.rooms[env.Room]
	if !ok {
		return
	}

	var ev Event
	if err := json.Unmarshal(env.Event, &ev); err != nil {
		h.log.Warn().Err(err).Str("room_id", env.Room).Msg("bad bus event")
		return
	}

	if env.Origin == h.id && env.Sender != "" {
		r.BroadcastExcept(env.Sender, &ev)
		return
	}
	r.Broadcast(&ev)
}

// sendError notifies the affected connection only, never through the bus.
func (h *Hub) sendError(c *Client, cerr *CoreError) {
	select {
	case c.Events <- &Event{Kind: EventError, Error: cerr}:
	default:
	}
}

// validTypingPayload rejects typing events with missing identity fields or
// the literal "null" user the web client emits before login resolves.
func validTypingPayload(cmd *Command) bool {
	return cmd.Room != "" && cmd.UserID != "" && cmd.UserID != "null"
}
