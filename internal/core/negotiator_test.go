package core

import (
	"context"
	"slices"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/store"
)

// cancelOnInsert cancels the caller's context once a room has been stored.
type cancelOnInsert struct {
	store.RoomStore
	cancel context.CancelFunc
}

func (r cancelOnInsert) InsertRoom(ctx context.Context, room *store.Room) error {
	err := r.RoomStore.InsertRoom(ctx, room)
	r.cancel()
	return err
}

func TestResolveCompletesAfterCallerCancels(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice-token")
	bob := env.connect(t, "bob-token")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.Nop()
	negotiator := NewNegotiator(env.store, cancelOnInsert{RoomStore: env.store, cancel: cancel}, &logger)

	room, err := negotiator.ResolvePrivateRoom(ctx, alice.Identity.UserID, "bob")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("expected the caller context to be cancelled during the insert")
	}

	for _, c := range []*Client{alice, bob} {
		u, err := env.store.GetUserByID(context.Background(), c.Identity.UserID)
		if err != nil {
			t.Fatalf("get %s: %v", c.Identity.Username, err)
		}
		if !slices.Contains(u.Rooms, room) {
			t.Fatalf("%s room set %v is missing %s", c.Identity.Username, u.Rooms, room.Hex())
		}
	}
}
