package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/coderoom-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, username string) *store.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), username, "hash")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return u
}

func TestCreateRoomAddsOwnerMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "alice")

	room, err := s.CreateRoom(ctx, "general", owner.ID)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.Name != "general" || room.OwnerID != owner.ID {
		t.Fatalf("unexpected room: %+v", room)
	}

	ok, err := s.IsMember(ctx, owner.ID, room.ID)
	if err != nil || !ok {
		t.Fatalf("owner should be a member, got %v %v", ok, err)
	}

	rooms, err := s.ListRooms(ctx, owner.ID)
	if err != nil || len(rooms) != 1 || rooms[0].ID != room.ID {
		t.Fatalf("unexpected room listing: %v %v", rooms, err)
	}
}

func TestMembershipLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "alice")
	member := seedUser(t, s, "bob")

	room, err := s.CreateRoom(ctx, "general", owner.ID)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if ok, _ := s.IsMember(ctx, member.ID, room.ID); ok {
		t.Fatal("bob should not be a member yet")
	}

	if err := s.AddMember(ctx, member.ID, room.ID); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	// Adding twice is a no-op.
	if err := s.AddMember(ctx, member.ID, room.ID); err != nil {
		t.Fatalf("repeated AddMember failed: %v", err)
	}

	members, err := s.ListMembers(ctx, room.ID)
	if err != nil || len(members) != 2 {
		t.Fatalf("unexpected members: %v %v", members, err)
	}

	rooms, err := s.ListRooms(ctx, member.ID)
	if err != nil || len(rooms) != 1 {
		t.Fatalf("member should see the room: %v %v", rooms, err)
	}

	if err := s.RemoveMember(ctx, member.ID, room.ID); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if ok, _ := s.IsMember(ctx, member.ID, room.ID); ok {
		t.Fatal("bob should be removed")
	}
}

func TestGetRoomNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetRoomByID(context.Background(), "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessagesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "alice")

	room, err := s.CreateRoom(ctx, "general", owner.ID)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, body := range []string{"first", "second", "third"} {
		msg := &store.Message{
			RoomID:    room.ID,
			UserID:    owner.ID,
			Body:      body,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
		if msg.ID == "" {
			t.Fatal("SaveMessage should assign an ID")
		}
	}

	msgs, err := s.ListMessages(ctx, room.ID, 2, nil)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "third" || msgs[1].Body != "second" {
		t.Fatalf("expected newest first, got %+v", msgs)
	}

	cursor := msgs[1].CreatedAt
	older, err := s.ListMessages(ctx, room.ID, 10, &cursor)
	if err != nil {
		t.Fatalf("ListMessages with cursor failed: %v", err)
	}
	if len(older) != 1 || older[0].Body != "first" {
		t.Fatalf("expected only the oldest message, got %+v", older)
	}
}

func TestFilesLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "alice")

	room, err := s.CreateRoom(ctx, "general", owner.ID)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	f, err := s.CreateFile(ctx, room.ID, "main.go")
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	if f.Content != "" {
		t.Fatalf("new file should be empty, got %q", f.Content)
	}

	if _, err := s.CreateFile(ctx, room.ID, "main.go"); err == nil {
		t.Fatal("duplicate file name in the same room should fail")
	}

	if err := s.UpdateFileContent(ctx, f.ID, "package main"); err != nil {
		t.Fatalf("UpdateFileContent failed: %v", err)
	}
	got, err := s.GetFileByID(ctx, f.ID)
	if err != nil || got.Content != "package main" {
		t.Fatalf("unexpected file after update: %+v %v", got, err)
	}

	files, err := s.ListFiles(ctx, room.ID)
	if err != nil || len(files) != 1 {
		t.Fatalf("unexpected file list: %v %v", files, err)
	}

	if err := s.UpdateFileContent(ctx, "ghost", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGuestUserLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	guest, err := s.CreateGuestUser(ctx, "deadbeefcafe")
	if err != nil {
		t.Fatalf("CreateGuestUser failed: %v", err)
	}
	if !guest.IsGuest || guest.Username != "guest_deadbeef" {
		t.Fatalf("unexpected guest: %+v", guest)
	}

	got, err := s.GetUserBySessionID(ctx, "deadbeefcafe")
	if err != nil || got.ID != guest.ID {
		t.Fatalf("session lookup failed: %+v %v", got, err)
	}
}
