package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict is returned when a uniqueness violation survives the get-or-create retry.
	ErrConflict = errors.New("unresolved uniqueness conflict")
	// ErrInvalidID is returned when a raw identifier is not a valid object id.
	ErrInvalidID = errors.New("invalid object id")
)

// ID identifies users and rooms in every backend. It is a 12-byte object id,
// rendered as 24 hex characters on the wire.
type ID = primitive.ObjectID

// NewID returns a fresh identifier.
func NewID() ID {
	return primitive.NewObjectID()
}

// ParseID parses the hex form of an identifier.
func ParseID(raw string) (ID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

// User is the account record. Rooms is a set: it never holds the same id twice.
type User struct {
	ID           ID        `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email,omitempty"`
	PasswordHash string    `bson:"password,omitempty"`
	IsAdmin      bool      `bson:"is_admin,omitempty"`
	Rooms        []ID      `bson:"rooms,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

// Claim is the verified identity payload a user record is resolved from.
type Claim struct {
	Username string
	Email    string
}

// RoomType defines different types of rooms.
type RoomType string

const (
	RoomTypePrivate RoomType = "private"
	RoomTypeGroup   RoomType = "group"
)

// Room is a chat room. Private rooms carry the canonical PairKey of their two participants.
type Room struct {
	ID           ID        `bson:"_id"`
	Type         RoomType  `bson:"type"`
	Participants []ID      `bson:"participants"`
	PairKey      string    `bson:"pair_key,omitempty"`
	Messages     []Message `bson:"messages"`
	CreatedAt    time.Time `bson:"created_at"`
}

// Message is an entry in a room's append-only log.
type Message struct {
	Sender    string    `bson:"sender"`
	Body      string    `bson:"message"`
	Timestamp time.Time `bson:"timestamp"`
}

// UserStore handles user persistence.
type UserStore interface {
	// GetUserByID retrieves a user, including its room set.
	GetUserByID(ctx context.Context, id ID) (*User, error)

	// GetUserByUsername retrieves a user by its unique username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// InsertUser stores a new user. Returns ErrDuplicate on a username or email collision.
	InsertUser(ctx context.Context, user *User) error

	// AddUserRoom adds roomID to the user's room set. Adding an id twice is a no-op.
	AddUserRoom(ctx context.Context, userID, roomID ID) error
}

// RoomStore handles room and message persistence.
type RoomStore interface {
	// GetRoom retrieves a room without its message log.
	GetRoom(ctx context.Context, id ID) (*Room, error)

	// FindPrivateRoom retrieves the private room of a participant pair.
	FindPrivateRoom(ctx context.Context, pair Pair) (*Room, error)

	// InsertRoom stores a new room. Returns ErrDuplicate if a private room already exists for its pair.
	InsertRoom(ctx context.Context, room *Room) error

	// AppendMessage appends msg to the log of the room matching roomID in a single
	// atomic update and reports how many rooms matched (0 or 1).
	AppendMessage(ctx context.Context, roomID ID, msg Message) (int64, error)

	// ListRoomsByIDs retrieves rooms (without logs) in the order of ids. Unknown ids are skipped.
	ListRoomsByIDs(ctx context.Context, ids []ID) ([]*Room, error)

	// ListMessages returns up to limit of the most recent messages of a room, oldest first.
	ListMessages(ctx context.Context, roomID ID, limit int) ([]Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore

	// Migrate creates the unique indexes the atomic primitives rely on.
	Migrate(ctx context.Context) error

	// Ping checks the connection to the backend.
	Ping(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
