package core

import "sort"

// Room is a broadcast group: the set of connections currently receiving a
// room's live events. Only the hub goroutine touches it.
type Room struct {
	ID      string
	clients map[string]*Client
}

// NewRoom constructs a room with no clients.
func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		clients: make(map[string]*Client),
	}
}

// Add inserts a client into the room. Returns true if newly added.
func (r *Room) Add(c *Client) bool {
	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// Remove deletes a client from the room. Returns true if removed.
func (r *Room) Remove(c *Client) bool {
	if _, exists := r.clients[c.ID]; !exists {
		return false
	}
	delete(r.clients, c.ID)
	return true
}

// Has reports whether the connection is grouped into the room.
func (r *Room) Has(connID string) bool {
	_, ok := r.clients[connID]
	return ok
}

// Broadcast sends an event to all clients in the room.
func (r *Room) Broadcast(event *Event) {
	for _, client := range r.clients {
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}

// BroadcastExcept sends an event to all clients except the named connection.
func (r *Room) BroadcastExcept(exceptConnID string, event *Event) {
	for id, client := range r.clients {
		if id == exceptConnID {
			continue
		}
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}

// OnlineUsers returns the sorted user IDs present in the room. A user is
// listed while any of their connections is grouped here and still counted
// online by the tracker.
func (r *Room) OnlineUsers(p *Presence) []string {
	seen := make(map[string]struct{})
	users := make([]string, 0, len(r.clients))
	for _, client := range r.clients {
		if client.UserID == "" || !p.IsOnline(client.UserID) {
			continue
		}
		if _, ok := seen[client.UserID]; ok {
			continue
		}
		seen[client.UserID] = struct{}{}
		users = append(users, client.UserID)
	}
	sort.Strings(users)
	return users
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
