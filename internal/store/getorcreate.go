package store

import (
	"context"
	"errors"
	"time"
)

// GetOrCreate looks a document up with find and inserts it with create when it is absent.
// If create loses a race against a concurrent insert (ErrDuplicate), the lookup is retried
// exactly once so the loser observes the winner's document. A second miss is reported as
// ErrConflict instead of looping.
func GetOrCreate[T any](ctx context.Context, find, create func(context.Context) (T, error)) (T, bool, error) {
	var zero T

	v, err := find(ctx)
	if err == nil {
		return v, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return zero, false, err
	}

	v, err = create(ctx)
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return zero, false, err
	}

	v, err = find(ctx)
	if err == nil {
		return v, false, nil
	}
	if errors.Is(err, ErrNotFound) {
		return zero, false, ErrConflict
	}
	return zero, false, err
}

// GetOrCreateUser resolves the user record of a verified claim, keyed by username.
func GetOrCreateUser(ctx context.Context, users UserStore, claim Claim) (*User, error) {
	user, _, err := GetOrCreate(ctx,
		func(ctx context.Context) (*User, error) {
			return users.GetUserByUsername(ctx, claim.Username)
		},
		func(ctx context.Context) (*User, error) {
			u := &User{
				ID:        NewID(),
				Username:  claim.Username,
				Email:     claim.Email,
				CreatedAt: time.Now().UTC(),
			}
			if err := users.InsertUser(ctx, u); err != nil {
				return nil, err
			}
			return u, nil
		},
	)
	return user, err
}

// GetOrCreatePrivateRoom resolves the single private room of pair. The boolean
// reports whether this call created it.
func GetOrCreatePrivateRoom(ctx context.Context, rooms RoomStore, pair Pair) (*Room, bool, error) {
	return GetOrCreate(ctx,
		func(ctx context.Context) (*Room, error) {
			return rooms.FindPrivateRoom(ctx, pair)
		},
		func(ctx context.Context) (*Room, error) {
			r := &Room{
				ID:           NewID(),
				Type:         RoomTypePrivate,
				Participants: pair.IDs(),
				PairKey:      pair.Key(),
				Messages:     []Message{},
				CreatedAt:    time.Now().UTC(),
			}
			if err := rooms.InsertRoom(ctx, r); err != nil {
				return nil, err
			}
			return r, nil
		},
	)
}
