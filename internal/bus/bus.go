// Package bus carries room-scoped broadcast envelopes between the hub and,
// optionally, other server instances. The hub publishes every room fan-out
// here and consumes delivery from Events, so the single-process local bus
// and the NATS-backed bus are interchangeable.
package bus

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrFull is returned when a publish would overflow the delivery buffer.
var ErrFull = errors.New("bus: buffer full")

// Envelope is one room broadcast in flight.
type Envelope struct {
	// Room is the broadcast group the event targets.
	Room string `json:"room"`
	// Origin identifies the publishing server instance. The instance that
	// published an envelope excludes Sender on delivery; other instances
	// deliver to every grouped connection.
	Origin string `json:"origin"`
	// Sender is the originating connection ID, empty when the event should
	// reach the sender too (presence snapshots, chat fan-out).
	Sender string `json:"sender,omitempty"`
	// Event is the serialized core event.
	Event json.RawMessage `json:"event"`
}

// Bus is a room-keyed publish/subscribe channel.
type Bus interface {
	// Publish enqueues an envelope for delivery to all subscribers.
	Publish(ctx context.Context, env Envelope) error

	// Events yields envelopes for local delivery, including the
	// instance's own publishes.
	Events() <-chan Envelope

	// Close releases the underlying transport.
	Close() error
}
