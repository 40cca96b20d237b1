package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/pairchat/internal/config"
	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/metrics"
	"github.com/vovakirdan/pairchat/internal/proto"
)

const disconnectTimeout = 5 * time.Second

// WSHandler authenticates websocket handshakes and bridges them to core.Client.
type WSHandler struct {
	engine *core.Engine
	cfg    config.WSConfig
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(engine *core.Engine, cfg config.WSConfig, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{engine: engine, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	// The handshake is refused before the upgrade, so a rejected client never holds a socket.
	client, err := h.engine.Connect(ctx, r.Header.Get("Authorization"))
	if err != nil {
		kind := core.KindOf(err)
		metrics.ConnectionsRefused.WithLabelValues(string(kind)).Inc()
		if kind == core.KindUnavailable {
			h.log.Warn().Err(err).Msg("ws connect failed")
		} else {
			h.log.Debug().Err(err).Msg("ws connect refused")
		}
		writeRefusal(w, err)
		return
	}
	log := h.log.With().Str("conn_id", client.ID).Str("user", client.Identity.Username).Logger()

	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
		defer cancel()
		if err := h.engine.Disconnect(dctx, client); err != nil {
			log.Warn().Err(err).Msg("disconnect cleanup failed")
		}
	}()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.AllowedOrigins,
	})
	if err != nil {
		log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	limiter := newRateLimiter(h.cfg.MessagesPerMinute)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.readLoop(gctx, conn, client, limiter, &log) })
	g.Go(func() error { return h.writeLoop(gctx, conn, client, &log) })
	g.Go(func() error { return h.engine.Serve(gctx, client) })
	if h.cfg.PingInterval > 0 {
		g.Go(func() error { return pingLoop(gctx, conn, h.cfg.PingInterval) })
	}
	err = g.Wait()

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter, log *zerolog.Logger) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var cmd *core.Command
		var inbound proto.Inbound
		switch err := json.Unmarshal(data, &inbound); {
		case err != nil:
			cmd = rejected("", core.NewError(core.KindValidation, "Malformed frame.", err))
		case !limiter.allow():
			log.Debug().Str("type", inbound.Type).Str("ref", inbound.Ref).Msg("inbound event rate limited")
			cmd = rejected(inbound.Ref, core.ErrRateLimited)
		default:
			log.Debug().Str("type", inbound.Type).Str("ref", inbound.Ref).RawJSON("data", rawOrNull(inbound.Data)).Msg("inbound event")
			if cmd, err = inboundToCommand(inbound); err != nil {
				cmd = rejected(inbound.Ref, err)
			}
		}

		// Rejections share the command queue so every reply keeps arrival order.
		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, log *zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				log.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func rejected(ref string, err error) *core.Command {
	return &core.Command{Kind: core.CommandInvalid, Ref: ref, Err: err}
}

func pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, interval)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func writeRefusal(w stdhttp.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusFor(core.KindOf(err)))
	_ = json.NewEncoder(w).Encode(proto.Refusal{Error: *protoError(err)})
}

func rawOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return []byte("null")
	}
	return raw
}
