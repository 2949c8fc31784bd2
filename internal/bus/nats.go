package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const natsBuffer = 256

// NATS is a bus backed by a NATS subject per room. Every instance subscribes
// to the whole prefix, so any instance can deliver to any grouped connection.
type NATS struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	prefix string
	ch     chan Envelope
	log    *zerolog.Logger
}

// NewNATS connects to the given NATS URL and subscribes to prefix.>.
func NewNATS(url, prefix string, logger *zerolog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("coderoom-server"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	b := &NATS{
		nc:     nc,
		prefix: prefix,
		ch:     make(chan Envelope, natsBuffer),
		log:    logger,
	}

	sub, err := nc.Subscribe(prefix+".>", b.handleMessage)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s.>: %w", prefix, err)
	}
	b.sub = sub

	return b, nil
}

// Publish marshals the envelope onto the room's subject.
func (b *NATS) Publish(_ context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.nc.Publish(b.prefix+"."+env.Room, data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Events yields envelopes received from the subject tree, the instance's
// own publishes included.
func (b *NATS) Events() <-chan Envelope {
	return b.ch
}

// Close drains the subscription and connection.
func (b *NATS) Close() error {
	if err := b.sub.Unsubscribe(); err != nil {
		b.log.Warn().Err(err).Msg("unsubscribe failed")
	}
	return b.nc.Drain()
}

func (b *NATS) handleMessage(msg *nats.Msg) {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.log.Warn().Err(err).Str("subject", msg.Subject).Msg("bad bus envelope")
		return
	}
	select {
	case b.ch <- env:
	default:
		b.log.Warn().Str("room", env.Room).Msg("nats bus consumer behind, dropping broadcast")
	}
}
