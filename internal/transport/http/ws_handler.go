package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/core"
	"github.com/vovakirdan/coderoom-server/internal/metrics"
	"github.com/vovakirdan/coderoom-server/internal/proto"
	"github.com/vovakirdan/coderoom-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client:
// inbound frames become commands, hub events become outbound frames.
type WSHandler struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewWSHandler builds the websocket endpoint handler.
func NewWSHandler(hub *core.Hub, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	client := core.NewClient(utils.NewID())
	h.hub.RegisterClient(client)
	// Unconditional finalizer: an abrupt transport drop must clean up
	// exactly like an explicit leave.
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan error, 2)
	go func() { done <- h.readLoop(ctx, conn, client) }()
	go func() { done <- h.writeLoop(ctx, conn, client) }()

	// First loop to fail decides the close status; the other is cancelled.
	loopErr := <-done
	cancel()
	<-done

	status, reason := closeStatus(loopErr)
	if status == websocket.StatusInternalError {
		h.log.Warn().Err(loopErr).Str("conn_id", client.ID).Msg("ws connection closed with error")
	}
	conn.Close(status, reason)
}

// closeStatus maps a loop error onto the websocket close handshake.
func closeStatus(err error) (websocket.StatusCode, string) {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		return websocket.StatusNormalClosure, "closing"
	}
	if s := websocket.CloseStatus(err); s != 0 {
		if s == websocket.StatusNormalClosure || s == websocket.StatusGoingAway {
			return s, "closing"
		}
		return s, err.Error()
	}
	return websocket.StatusInternalError, err.Error()
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(defaultMessageLimit)
	defer limiter.stop()

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			h.log.Warn().Str("conn_id", client.ID).Msg("inbound rate limit exceeded, dropping message")
			if err := h.writeError(ctx, conn, &proto.Error{Code: "rate_limited", Msg: "too many messages"}); err != nil {
				return err
			}
			continue
		}

		// Fold unrecognized types into one label so client input cannot
		// grow the label set.
		metricType := inbound.Type
		if !proto.KnownInboundType(metricType) {
			metricType = "unknown"
		}
		metrics.EventsReceived.WithLabelValues(metricType).Inc()

		cmd, protoErr, err := inboundToCommand(inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if err := h.writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}
		if cmd != nil {
			client.Commands <- cmd
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, perr *proto.Error) error {
	return wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: perr})
}
