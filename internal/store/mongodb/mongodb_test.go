package mongodb

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/pairchat/internal/store"
)

// newTestStore connects to the database named by PAIRCHAT_TEST_MONGO_URI and
// uses a throwaway database per test.
func newTestStore(t *testing.T) *MongoStore {
	t.Helper()

	uri := os.Getenv("PAIRCHAT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PAIRCHAT_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := New(ctx, Options{
		URI:         uri,
		Database:    "pairchat_test_" + store.NewID().Hex(),
		MaxPoolSize: 8,
		OpTimeout:   5 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))

	t.Cleanup(func() {
		_ = s.users.Database().Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func TestConcurrentPrivateRoomCreationConverges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pair := store.NewPair(store.NewID(), store.NewID())

	const callers = 16
	ids := make([]store.ID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room, _, err := store.GetOrCreatePrivateRoom(ctx, s, pair)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = room.ID
		}()
	}
	wg.Wait()

	for i, id := range ids {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], id)
	}
	n, err := s.rooms.CountDocuments(ctx, map[string]any{"pair_key": pair.Key()})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestAppendMessageAndAddUserRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := store.GetOrCreateUser(ctx, s, store.Claim{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	room, _, err := store.GetOrCreatePrivateRoom(ctx, s, store.NewPair(user.ID, store.NewID()))
	require.NoError(t, err)

	require.NoError(t, s.AddUserRoom(ctx, user.ID, room.ID))
	require.NoError(t, s.AddUserRoom(ctx, user.ID, room.ID))
	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, []store.ID{room.ID}, got.Rooms)

	matched, err := s.AppendMessage(ctx, store.NewID(), store.Message{Sender: "alice", Body: "x", Timestamp: time.Now()})
	require.NoError(t, err)
	require.Zero(t, matched)

	matched, err = s.AppendMessage(ctx, room.ID, store.Message{Sender: "alice", Body: "hi", Timestamp: time.Now()})
	require.NoError(t, err)
	require.EqualValues(t, 1, matched)

	msgs, err := s.ListMessages(ctx, room.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hi", msgs[0].Body)

	rooms, err := s.ListRoomsByIDs(ctx, got.Rooms)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, store.RoomTypePrivate, rooms[0].Type)
	require.Empty(t, rooms[0].Messages)
}
