package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vovakirdan/pairchat/internal/store"
)

const (
	collectionUsers = "users"
	collectionRooms = "rooms"
)

// Options configures the Mongo connection.
type Options struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
	// OpTimeout bounds every operation issued through the client.
	OpTimeout time.Duration
}

// MongoStore implements store.Store on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	rooms  *mongo.Collection
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, opts Options) (*MongoStore, error) {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetMinPoolSize(opts.MinPoolSize)
	if opts.OpTimeout > 0 {
		clientOpts.SetTimeout(opts.OpTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(opts.Database)
	return &MongoStore{
		client: client,
		users:  db.Collection(collectionUsers),
		rooms:  db.Collection(collectionRooms),
	}, nil
}

// Migrate creates the unique indexes get-or-create relies on.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username"),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email").
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.rooms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pair_key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_private_pair").
			SetPartialFilterExpression(bson.M{"type": string(store.RoomTypePrivate)}),
	})
	if err != nil {
		return fmt.Errorf("create room indexes: %w", err)
	}
	return nil
}

// Ping checks the connection to the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("find %s: %w", what, err)
}

// ==== UserStore implementation ====

// InsertUser stores a new user.
func (s *MongoStore) InsertUser(ctx context.Context, user *store.User) error {
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert user %q: %w", user.Username, store.ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *MongoStore) GetUserByID(ctx context.Context, id store.ID) (*store.User, error) {
	var user store.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, notFound(err, "user "+id.Hex())
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var user store.User
	if err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&user); err != nil {
		return nil, notFound(err, "user "+username)
	}
	return &user, nil
}

// AddUserRoom adds roomID to the user's room set with $addToSet.
func (s *MongoStore) AddUserRoom(ctx context.Context, userID, roomID store.ID) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"rooms": roomID}},
	)
	if err != nil {
		return fmt.Errorf("add user room: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID.Hex(), store.ErrNotFound)
	}
	return nil
}

// ==== RoomStore implementation ====

var withoutLog = options.FindOne().SetProjection(bson.M{"messages": 0})

// InsertRoom stores a new room.
func (s *MongoStore) InsertRoom(ctx context.Context, room *store.Room) error {
	if room.Messages == nil {
		room.Messages = []store.Message{}
	}
	if _, err := s.rooms.InsertOne(ctx, room); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert room %s: %w", room.PairKey, store.ErrDuplicate)
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (s *MongoStore) GetRoom(ctx context.Context, id store.ID) (*store.Room, error) {
	var room store.Room
	if err := s.rooms.FindOne(ctx, bson.M{"_id": id}, withoutLog).Decode(&room); err != nil {
		return nil, notFound(err, "room "+id.Hex())
	}
	return &room, nil
}

// FindPrivateRoom retrieves the private room of a participant pair.
func (s *MongoStore) FindPrivateRoom(ctx context.Context, pair store.Pair) (*store.Room, error) {
	filter := bson.M{"type": string(store.RoomTypePrivate), "pair_key": pair.Key()}
	var room store.Room
	if err := s.rooms.FindOne(ctx, filter, withoutLog).Decode(&room); err != nil {
		return nil, notFound(err, "private room "+pair.Key())
	}
	return &room, nil
}

// ListRoomsByIDs retrieves rooms in the order of ids.
func (s *MongoStore) ListRoomsByIDs(ctx context.Context, ids []store.ID) ([]*store.Room, error) {
	if len(ids) == 0 {
		return []*store.Room{}, nil
	}

	cur, err := s.rooms.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"messages": 0}),
	)
	if err != nil {
		return nil, fmt.Errorf("find rooms: %w", err)
	}
	var rooms []*store.Room
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}

	byID := make(map[store.ID]*store.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}
	ordered := make([]*store.Room, 0, len(rooms))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// AppendMessage pushes msg onto the room's log, restricted to the document matching roomID.
func (s *MongoStore) AppendMessage(ctx context.Context, roomID store.ID, msg store.Message) (int64, error) {
	res, err := s.rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$push": bson.M{"messages": msg}},
	)
	if err != nil {
		return 0, fmt.Errorf("push message: %w", err)
	}
	return res.MatchedCount, nil
}

// ListMessages returns the tail of a room's log using a $slice projection.
func (s *MongoStore) ListMessages(ctx context.Context, roomID store.ID, limit int) ([]store.Message, error) {
	if limit <= 0 {
		return []store.Message{}, nil
	}

	opts := options.FindOne().SetProjection(bson.M{"messages": bson.M{"$slice": -limit}})
	var room store.Room
	if err := s.rooms.FindOne(ctx, bson.M{"_id": roomID}, opts).Decode(&room); err != nil {
		return nil, notFound(err, "room "+roomID.Hex())
	}
	if room.Messages == nil {
		return []store.Message{}, nil
	}
	return room.Messages, nil
}
