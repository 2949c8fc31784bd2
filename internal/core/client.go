package core

// Client is one live connection as seen by the core layer. Identity stays
// empty until a join with a valid credential binds it; all fields besides
// the channels are owned by the hub goroutine afterwards.
type Client struct {
	ID       string
	UserID   string
	Username string
	Commands chan *Command
	Events   chan *Event
	Rooms    map[string]struct{}

	done chan struct{}
}

// NewClient constructs a client with initialized channels. id is the
// transport-level connection identifier.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 16),
		Rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}
