package session

import (
	"context"
	"errors"

	"github.com/vovakirdan/pairchat/internal/store"
)

// ErrNoSession is returned when a connection has no bound identity.
var ErrNoSession = errors.New("no session bound to connection")

// Identity is the authenticated account a connection acts as.
type Identity struct {
	UserID   store.ID `json:"_id"`
	Username string   `json:"username"`
}

// Store maps live connection ids to the identity bound at connect time.
// Entries have no expiry; they are removed explicitly on disconnect.
type Store interface {
	// Bind writes the identity of connID, replacing any previous entry.
	Bind(ctx context.Context, connID string, id Identity) error

	// Lookup returns the identity bound to connID or ErrNoSession.
	Lookup(ctx context.Context, connID string) (Identity, error)

	// Unbind removes the entry of connID. A missing entry is not an error.
	Unbind(ctx context.Context, connID string) error

	// Ping checks the backend.
	Ping(ctx context.Context) error

	// Close removes every entry this store bound and releases the backend.
	Close(ctx context.Context) error
}
