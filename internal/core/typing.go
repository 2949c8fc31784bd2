package core

import "time"

// typingTTL is the server-side expiry grace for typing indicators. Clients
// re-arm every 2s while typing, so a 3s window only fires on real inactivity.
const typingTTL = 3 * time.Second

// typingRetryDelay paces expiry re-delivery while the hub is draining a
// full expired channel.
const typingRetryDelay = 10 * time.Millisecond

type typingKey struct {
	Room   string
	UserID string
	File   string
}

type typingExpiry struct {
	key typingKey
	gen uint64
}

type typingEntry struct {
	timer    *time.Timer
	gen      uint64
	line     int
	username string
}

// typingTracker is the Idle -> Typing -> Idle state machine, one entry per
// (room, user, file). Touch and Stop run on the hub goroutine; timers fire
// on their own goroutine and only push an expiry token back through the
// expired channel, so the actual Typing -> Idle transition also happens on
// the hub goroutine. The generation counter discards expiries that raced
// with a refresh.
type typingTracker struct {
	ttl     time.Duration
	entries map[typingKey]*typingEntry
	expired chan typingExpiry
}

func newTypingTracker(ttl time.Duration) *typingTracker {
	return &typingTracker{
		ttl:     ttl,
		entries: make(map[typingKey]*typingEntry),
		expired: make(chan typingExpiry, 64),
	}
}

// Touch creates or refreshes the indicator and re-arms its expiry timer.
func (t *typingTracker) Touch(key typingKey, line int, username string) {
	e, ok := t.entries[key]
	if ok {
		e.timer.Stop()
		e.gen++
		e.line = line
		e.username = username
	} else {
		e = &typingEntry{gen: 1, line: line, username: username}
		t.entries[key] = e
	}

	gen := e.gen
	e.timer = time.AfterFunc(t.ttl, func() {
		t.fire(key, gen)
	})
}

// fire delivers an expiry token to the hub. A full channel re-arms a short
// retry timer instead of dropping the token; the generation check in Expire
// discards it if the entry was refreshed or cleared in the meantime.
func (t *typingTracker) fire(key typingKey, gen uint64) {
	select {
	case t.expired <- typingExpiry{key: key, gen: gen}:
	default:
		time.AfterFunc(typingRetryDelay, func() {
			t.fire(key, gen)
		})
	}
}

// Stop clears the indicator immediately. Returns true if it was active.
func (t *typingTracker) Stop(key typingKey) bool {
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, key)
	return true
}

// Expire handles a fired timer. Returns true exactly once per inactive
// indicator; a stale generation means the entry was refreshed or already
// cleared and the expiry is ignored.
func (t *typingTracker) Expire(exp typingExpiry) bool {
	e, ok := t.entries[exp.key]
	if !ok || e.gen != exp.gen {
		return false
	}
	delete(t.entries, exp.key)
	return true
}

// StopAll clears every indicator the user holds in the room, returning the
// cleared keys so the hub can broadcast the stops. Used on leave/disconnect.
func (t *typingTracker) StopAll(room, userID string) []typingKey {
	var cleared []typingKey
	for key, e := range t.entries {
		if key.Room == room && key.UserID == userID {
			e.timer.Stop()
			delete(t.entries, key)
			cleared = append(cleared, key)
		}
	}
	return cleared
}
