package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents an account in the system.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	IsGuest      bool
	SessionID    string // for guest session tracking
	CreatedAt    time.Time
}

// Room represents a collaboration room. The owner is always authorized;
// everyone else must appear in room_members.
type Room struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// RoomMember represents room membership.
type RoomMember struct {
	UserID   string
	RoomID   string
	JoinedAt time.Time
}

// File is a shared document edited inside a room. Live code broadcasts do
// not touch it; content changes persist only through explicit updates.
type File struct {
	ID        string
	RoomID    string
	Name      string
	Content   string
	UpdatedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID        string
	RoomID    string
	UserID    string
	Body      string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserBySessionID retrieves a guest user by session ID.
	GetUserBySessionID(ctx context.Context, sessionID string) (*User, error)
}

// RoomStore handles room persistence. The membership gate consults
// GetRoomByID and ListMembers on every join attempt.
type RoomStore interface {
	// CreateRoom creates a new room owned by ownerID. The owner is
	// automatically added as a member.
	CreateRoom(ctx context.Context, name, ownerID string) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id string) (*Room, error)

	// ListRooms lists rooms the user owns or is a member of.
	ListRooms(ctx context.Context, userID string) ([]*Room, error)

	// AddMember adds a user to a room. Adding an existing member is a no-op.
	AddMember(ctx context.Context, userID, roomID string) error

	// RemoveMember removes a user from a room.
	RemoveMember(ctx context.Context, userID, roomID string) error

	// IsMember checks if user is a member of the room.
	IsMember(ctx context.Context, userID, roomID string) (bool, error)

	// ListMembers lists user IDs of all members of a room.
	ListMembers(ctx context.Context, roomID string) ([]string, error)
}

// FileStore handles shared-document persistence.
type FileStore interface {
	// CreateFile creates an empty file in a room.
	CreateFile(ctx context.Context, roomID, name string) (*File, error)

	// GetFileByID retrieves a file by ID.
	GetFileByID(ctx context.Context, id string) (*File, error)

	// ListFiles lists all files in a room.
	ListFiles(ctx context.Context, roomID string) ([]*File, error)

	// UpdateFileContent replaces a file's content.
	UpdateFileContent(ctx context.Context, id, content string) error
}

// MessageStore handles chat-message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID and timestamp.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages from a room, newest first. If before
	// is non-nil, only messages older than it are returned.
	ListMessages(ctx context.Context, roomID string, limit int, before *time.Time) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	FileStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
