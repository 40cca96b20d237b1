package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/metrics"
	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
)

// Lifecycle owns the connect and disconnect hooks of a connection. No command is
// processed for a connection before Connect has bound its session.
type Lifecycle struct {
	verifier auth.Verifier
	users    store.UserStore
	sessions session.Store
	hub      *Hub
	buffer   int
	log      *zerolog.Logger
}

// NewLifecycle creates the connection lifecycle manager.
func NewLifecycle(verifier auth.Verifier, users store.UserStore, sessions session.Store, hub *Hub, buffer int, logger *zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		verifier: verifier,
		users:    users,
		sessions: sessions,
		hub:      hub,
		buffer:   buffer,
		log:      logger,
	}
}

// Connect authenticates the "Bearer <token>" credential, resolves the user record
// of its claim and binds connID to it. On success the returned client is registered
// with the hub.
func (l *Lifecycle) Connect(ctx context.Context, connID, authorization string) (*Client, error) {
	token, err := auth.BearerToken(authorization)
	if err != nil {
		return nil, newError(KindAuthentication, "", err)
	}
	claim, err := l.verifier.Verify(token)
	if err != nil {
		return nil, newError(KindAuthentication, "", err)
	}

	user, err := store.GetOrCreateUser(ctx, l.users, claim)
	if err != nil {
		return nil, FromStore(err, "")
	}

	identity := session.Identity{UserID: user.ID, Username: user.Username}
	if err := l.sessions.Bind(ctx, connID, identity); err != nil {
		return nil, newError(KindUnavailable, "", err)
	}

	client := NewClient(connID, identity, l.buffer)
	l.hub.RegisterClient(client)
	metrics.ConnectionsActive.Inc()

	l.log.Info().Str("conn_id", connID).Str("user", user.Username).Msg("connection authenticated")
	return client, nil
}

// Disconnect drops every subscription of connID and removes its session entry.
// Calling it again for the same connection is a no-op.
func (l *Lifecycle) Disconnect(ctx context.Context, connID string) error {
	if c, ok := l.hub.UnregisterClient(connID); ok {
		metrics.ConnectionsActive.Dec()
		l.log.Info().Str("conn_id", connID).Str("user", c.Identity.Username).Msg("connection closed")
	}
	if err := l.sessions.Unbind(ctx, connID); err != nil {
		return newError(KindUnavailable, "", err)
	}
	return nil
}
