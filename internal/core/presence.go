package core

import "sort"

// Presence tracks which users are online, reference-counted per connection:
// a user is online while at least one of their connections is grouped into
// a room, so closing one of two browser tabs does not mark them offline.
type Presence struct {
	conns map[string]map[string]struct{} // userID -> live connection IDs
}

// NewPresence constructs an empty tracker.
func NewPresence() *Presence {
	return &Presence{conns: make(map[string]map[string]struct{})}
}

// Add records a connection for the user. Idempotent per (user, connection).
// Returns true if the user just came online.
func (p *Presence) Add(userID, connID string) bool {
	set, ok := p.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		p.conns[userID] = set
	}
	set[connID] = struct{}{}
	return !ok
}

// Remove drops a connection for the user. Returns true if that was the
// user's last connection and they went offline.
func (p *Presence) Remove(userID, connID string) bool {
	set, ok := p.conns[userID]
	if !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.conns, userID)
		return true
	}
	return false
}

// IsOnline reports whether the user has any live connection.
func (p *Presence) IsOnline(userID string) bool {
	return len(p.conns[userID]) > 0
}

// Online returns the sorted set of online user IDs. Order carries no
// meaning; sorting keeps snapshots deterministic.
func (p *Presence) Online() []string {
	users := make([]string, 0, len(p.conns))
	for id := range p.conns {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}
