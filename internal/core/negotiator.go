package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/metrics"
	"github.com/vovakirdan/pairchat/internal/store"
)

// Negotiator resolves the private room between two users.
type Negotiator struct {
	users store.UserStore
	rooms store.RoomStore
	log   *zerolog.Logger
}

// NewNegotiator creates a room negotiator.
func NewNegotiator(users store.UserStore, rooms store.RoomStore, logger *zerolog.Logger) *Negotiator {
	return &Negotiator{users: users, rooms: rooms, log: logger}
}

// ResolvePrivateRoom returns the id of the single private room shared by senderID
// and the user named receiverUsername, creating it on first use. Both participants
// get the room added to their room set. Callers subscribe the connection themselves.
func (n *Negotiator) ResolvePrivateRoom(ctx context.Context, senderID store.ID, receiverUsername string) (store.ID, error) {
	if receiverUsername == "" {
		return store.ID{}, newError(KindValidation, "Receiver is required.", nil).
			WithResolution("Please ensure you include the receiver username.")
	}

	receiver, err := n.users.GetUserByUsername(ctx, receiverUsername)
	if errors.Is(err, store.ErrNotFound) {
		return store.ID{}, newError(KindNotFound, "Receiver does not exist in the database.", err).
			WithResolution("Ensure the given username is correct, and the entity exists.")
	}
	if err != nil {
		return store.ID{}, FromStore(err, "")
	}
	if receiver.ID == senderID {
		return store.ID{}, newError(KindSelfTarget, "", nil)
	}

	// The room and both room-set entries are written together even if the caller goes away.
	wctx := context.WithoutCancel(ctx)

	pair := store.NewPair(senderID, receiver.ID)
	room, created, err := store.GetOrCreatePrivateRoom(wctx, n.rooms, pair)
	if err != nil {
		return store.ID{}, FromStore(err, "")
	}
	if created {
		metrics.PrivateRoomsCreated.Inc()
		n.log.Info().Str("room_id", room.ID.Hex()).Str("pair", pair.Key()).Msg("private room created")
	}

	for _, participant := range pair.IDs() {
		if err := n.users.AddUserRoom(wctx, participant, room.ID); err != nil {
			return store.ID{}, FromStore(err, "User does not exist.")
		}
	}

	return room.ID, nil
}
