package bus

import (
	"context"

	"github.com/rs/zerolog"
)

const localBuffer = 256

// Local is the in-process bus: the degenerate case of a broadcast bus with
// a single subscriber. Publishes loop straight back to Events.
type Local struct {
	ch  chan Envelope
	log *zerolog.Logger
}

// NewLocal creates an in-process bus.
func NewLocal(logger *zerolog.Logger) *Local {
	return &Local{
		ch:  make(chan Envelope, localBuffer),
		log: logger,
	}
}

// Publish enqueues the envelope. The hub both publishes and consumes on the
// same goroutine, so a full buffer drops the envelope instead of blocking.
func (b *Local) Publish(_ context.Context, env Envelope) error {
	select {
	case b.ch <- env:
		return nil
	default:
		b.log.Warn().Str("room", env.Room).Msg("local bus full, dropping broadcast")
		return ErrFull
	}
}

// Events yields published envelopes in FIFO order.
func (b *Local) Events() <-chan Envelope {
	return b.ch
}

// Close is a no-op for the local bus.
func (b *Local) Close() error {
	return nil
}
