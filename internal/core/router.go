package core

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/pairchat/internal/metrics"
	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
)

const lockStripes = 64

// roomLocks serializes append+broadcast per room so that broadcast order equals log order.
type roomLocks [lockStripes]sync.Mutex

func (l *roomLocks) lock(id store.ID) func() {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	m := &l[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// Router appends messages to room logs and fans them out to subscribers.
type Router struct {
	rooms    store.RoomStore
	users    store.UserStore
	sessions session.Store
	hub      *Hub
	locks    roomLocks
	now      func() time.Time
	log      *zerolog.Logger
}

// NewRouter creates a message router.
func NewRouter(rooms store.RoomStore, users store.UserStore, sessions session.Store, hub *Hub, logger *zerolog.Logger) *Router {
	return &Router{
		rooms:    rooms,
		users:    users,
		sessions: sessions,
		hub:      hub,
		now:      time.Now,
		log:      logger,
	}
}

// Publish appends body to the log of the room identified by rawRoomID on behalf of
// connID, then broadcasts it to the room's subscribers. Nothing is broadcast unless
// the append matched the room.
func (r *Router) Publish(ctx context.Context, connID, rawRoomID, body string) (store.Message, error) {
	identity, err := r.sessions.Lookup(ctx, connID)
	if err != nil {
		return store.Message{}, FromStore(err, "")
	}

	if rawRoomID == "" || body == "" {
		return store.Message{}, newError(KindValidation, "Room and message are required.", nil)
	}
	roomID, err := store.ParseID(rawRoomID)
	if err != nil {
		return store.Message{}, newError(KindValidation, "Invalid room object id.", err)
	}

	msg := store.Message{
		Sender:    identity.Username,
		Body:      body,
		Timestamp: r.now().UTC().Truncate(time.Millisecond),
	}

	// Once dispatched, the append and its broadcast complete even if the sender disconnects.
	ctx = context.WithoutCancel(ctx)

	unlock := r.locks.lock(roomID)
	defer unlock()

	matched, err := r.rooms.AppendMessage(ctx, roomID, msg)
	if err != nil {
		return store.Message{}, FromStore(err, "")
	}
	if matched == 0 {
		return store.Message{}, newError(KindNotFound, "Room does not exist.", nil)
	}
	metrics.MessagesPublished.Inc()

	delivered, dropped := r.hub.Broadcast(roomID, &Event{Kind: EventRoomMessage, Room: roomID, Message: msg})
	metrics.BroadcastDeliveries.WithLabelValues("delivered").Add(float64(delivered))
	if dropped > 0 {
		metrics.BroadcastDeliveries.WithLabelValues("dropped").Add(float64(dropped))
		r.log.Warn().Str("room_id", roomID.Hex()).Int("dropped", dropped).Msg("slow subscribers skipped")
	}

	return msg, nil
}

// ListRooms returns the room types of the user bound to connID.
func (r *Router) ListRooms(ctx context.Context, connID string) ([]string, error) {
	identity, err := r.sessions.Lookup(ctx, connID)
	if err != nil {
		return nil, FromStore(err, "")
	}
	return r.RoomTypes(ctx, identity.UserID)
}

// RoomTypes returns the type of every room in the user's room set, in set order.
// A user without rooms gets an empty slice.
func (r *Router) RoomTypes(ctx context.Context, userID store.ID) ([]string, error) {
	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, FromStore(err, "User does not exist.")
	}
	if len(user.Rooms) == 0 {
		return []string{}, nil
	}

	rooms, err := r.rooms.ListRoomsByIDs(ctx, user.Rooms)
	if err != nil {
		return nil, FromStore(err, "")
	}
	return lo.Map(rooms, func(room *store.Room, _ int) string {
		return string(room.Type)
	}), nil
}
