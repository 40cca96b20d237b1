package core

import (
	"context"
	"sync"

	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
)

// DefaultBuffer is the command and event queue depth of a client.
const DefaultBuffer = 32

// Client is one authenticated connection as seen by the core layer.
type Client struct {
	ID       string
	Identity session.Identity
	Commands chan *Command
	Events   chan *Event

	// rooms is guarded by the hub mutex.
	rooms map[store.ID]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, identity session.Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Client{
		ID:       id,
		Identity: identity,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		rooms:    make(map[store.ID]struct{}),
		done:     make(chan struct{}),
	}
}

// Done is closed once the client is disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// deliver queues ev without blocking. It reports false if the queue is full
// or the client is gone.
func (c *Client) deliver(ev *Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

// send queues a reply to this client, waiting for room in the queue.
func (c *Client) send(ctx context.Context, ev *Event) error {
	select {
	case c.Events <- ev:
		return nil
	case <-c.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}
