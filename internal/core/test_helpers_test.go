package core

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/bus"
	"github.com/vovakirdan/coderoom-server/internal/store"
)

// fakeDirectory serves room and membership lookups from maps.
type fakeDirectory struct {
	rooms   map[string]*store.Room
	members map[string][]string
	err     error
}

func (d *fakeDirectory) GetRoomByID(_ context.Context, id string) (*store.Room, error) {
	if d.err != nil {
		return nil, d.err
	}
	room, ok := d.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return room, nil
}

func (d *fakeDirectory) ListMembers(_ context.Context, roomID string) ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.members[roomID], nil
}

// fakeVerifier resolves tokens from a map; unknown tokens are invalid.
type fakeVerifier struct {
	tokens map[string][2]string // token -> {userID, username}
}

func (v *fakeVerifier) VerifyToken(token string) (string, string, error) {
	id, ok := v.tokens[token]
	if !ok {
		return "", "", &CoreError{Code: ErrCodeInvalidCredential, Message: "invalid credential"}
	}
	return id[0], id[1], nil
}

// testDirectory returns a directory with one room owned by u-alice with
// u-bob as a member, and a verifier for both users.
func testCollaborators() (*fakeDirectory, *fakeVerifier) {
	dir := &fakeDirectory{
		rooms: map[string]*store.Room{
			"r1": {ID: "r1", Name: "general", OwnerID: "u-alice"},
		},
		members: map[string][]string{
			"r1": {"u-alice", "u-bob"},
		},
	}
	verifier := &fakeVerifier{tokens: map[string][2]string{
		"alice-token": {"u-alice", "alice"},
		"bob-token":   {"u-bob", "bob"},
	}}
	return dir, verifier
}

func newTestHub(t testing.TB, dir RoomDirectory, verifier TokenVerifier) *Hub {
	t.Helper()
	logger := zerolog.Nop()
	return NewHub(dir, verifier, bus.NewLocal(&logger), &logger)
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("events channel closed while waiting for %v", kind)
				return nil
			}
			if ev != nil && ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return nil
		}
	}
}

// mustNoEvent asserts that no event of the given kind arrives within the
// window. Other kinds are drained and ignored.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.After(150 * time.Millisecond)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		case <-deadline:
			return
		}
	}
}

func join(t *testing.T, c *Client, room, token string) {
	t.Helper()
	c.Commands <- &Command{Kind: CommandJoinRoom, Room: room, Token: token}
	ev := mustEvent(t, c.Events, EventOnlineUsers)
	if ev.Room != room {
		t.Fatalf("unexpected join snapshot room: %+v", ev)
	}
}
