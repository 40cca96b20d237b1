package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/metrics"
	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
	"github.com/vovakirdan/pairchat/internal/utils"
)

// Options configures an Engine.
type Options struct {
	Verifier auth.Verifier
	Store    store.Store
	Sessions session.Store
	// Buffer is the per-client queue depth. Zero means DefaultBuffer.
	Buffer int
	Logger *zerolog.Logger
}

// Engine wires the lifecycle manager, room negotiator and message router around one hub.
type Engine struct {
	Hub        *Hub
	Lifecycle  *Lifecycle
	Negotiator *Negotiator
	Router     *Router

	sessions session.Store
	log      *zerolog.Logger
}

// NewEngine creates the chat core.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	hub := NewHub()
	return &Engine{
		Hub:        hub,
		Lifecycle:  NewLifecycle(opts.Verifier, opts.Store, opts.Sessions, hub, opts.Buffer, logger),
		Negotiator: NewNegotiator(opts.Store, opts.Store, logger),
		Router:     NewRouter(opts.Store, opts.Store, opts.Sessions, hub, logger),
		sessions:   opts.Sessions,
		log:        logger,
	}
}

// Connect authenticates a new connection and returns its client.
func (e *Engine) Connect(ctx context.Context, authorization string) (*Client, error) {
	return e.Lifecycle.Connect(ctx, utils.NewID(), authorization)
}

// Disconnect tears the client down. It is safe to call more than once.
func (e *Engine) Disconnect(ctx context.Context, c *Client) error {
	return e.Lifecycle.Disconnect(ctx, c.ID)
}

// Serve handles the commands of c one at a time until the client is gone or ctx ends.
func (e *Engine) Serve(ctx context.Context, c *Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.Done():
			return nil
		case cmd := <-c.Commands:
			e.Handle(ctx, c, cmd)
		}
	}
}

// Handle executes cmd for c and queues the reply, if any, on c.Events.
// A successful send_message has no reply; its broadcast is the result.
func (e *Engine) Handle(ctx context.Context, c *Client, cmd *Command) {
	var (
		reply *Event
		err   error
	)

	switch cmd.Kind {
	case CommandJoinPrivateRoom:
		reply, err = e.joinPrivateRoom(ctx, c, cmd)
	case CommandSendMessage:
		_, err = e.Router.Publish(ctx, c.ID, cmd.Room, cmd.Body)
	case CommandListRooms:
		var rooms []string
		rooms, err = e.Router.ListRooms(ctx, c.ID)
		reply = &Event{Kind: EventRoomList, Rooms: rooms}
	case CommandInvalid:
		err = cmd.Err
		if err == nil {
			err = newError(KindValidation, "", nil)
		}
	default:
		err = newError(KindValidation, "Unknown command.", nil)
	}

	if err != nil {
		reply = e.failure(c, cmd, err)
	}
	if reply == nil {
		return
	}
	reply.Ref = cmd.Ref
	if err := c.send(ctx, reply); err != nil {
		e.log.Debug().Err(err).Str("conn_id", c.ID).Msg("reply not delivered")
	}
}

func (e *Engine) joinPrivateRoom(ctx context.Context, c *Client, cmd *Command) (*Event, error) {
	identity, err := e.sessions.Lookup(ctx, c.ID)
	if err != nil {
		return nil, FromStore(err, "")
	}
	roomID, err := e.Negotiator.ResolvePrivateRoom(ctx, identity.UserID, cmd.Receiver)
	if err != nil {
		return nil, err
	}
	e.Hub.Subscribe(c, roomID)
	return &Event{Kind: EventRoomJoined, Room: roomID}, nil
}

func (e *Engine) failure(c *Client, cmd *Command, err error) *Event {
	kind := KindOf(err)
	metrics.EventErrors.WithLabelValues(string(kind)).Inc()

	ev := e.log.Debug()
	var domainErr *Error
	if kind == KindUnavailable || !errors.As(err, &domainErr) {
		ev = e.log.Warn()
	}
	ev.Err(err).
		Str("conn_id", c.ID).
		Str("user", c.Identity.Username).
		Int("command", int(cmd.Kind)).
		Msg("command failed")

	return &Event{Kind: EventError, Err: err}
}
