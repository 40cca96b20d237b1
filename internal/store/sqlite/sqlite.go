package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/pairchat/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db        *sql.DB
	opTimeout time.Duration
}

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file; opTimeout bounds every
// operation (zero disables the bound).
func New(dbPath string, opTimeout time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, opTimeout: opTimeout}, nil
}

// NewMemory opens an in-memory store with the schema applied. Used by tests.
func NewMemory() (*SQLiteStore, error) {
	s, err := New(":memory:", 0)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the schema. It is safe to run repeatedly.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func parseID(raw string) (store.ID, error) {
	id, err := store.ParseID(raw)
	if err != nil {
		return store.ID{}, fmt.Errorf("corrupt id column: %w", err)
	}
	return id, nil
}

// ==== UserStore implementation ====

// InsertUser stores a new user.
func (s *SQLiteStore) InsertUser(ctx context.Context, user *store.User) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `
		INSERT INTO users (id, username, email, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	var email sql.NullString
	if user.Email != "" {
		email = sql.NullString{String: user.Email, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		user.ID.Hex(), user.Username, email, user.PasswordHash, user.IsAdmin, user.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user %q: %w", user.Username, store.ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id store.ID) (*store.User, error) {
	return s.getUser(ctx, "id = ?", id.Hex())
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `
		SELECT id, username, COALESCE(email, ''), password_hash, is_admin, created_at
		FROM users
		WHERE ` + where
	var user store.User
	var rawID string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&rawID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if user.ID, err = parseID(rawID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT room_id FROM user_rooms WHERE user_id = ? ORDER BY rowid`, rawID)
	if err != nil {
		return nil, fmt.Errorf("query user rooms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawRoom string
		if err := rows.Scan(&rawRoom); err != nil {
			return nil, fmt.Errorf("scan user room: %w", err)
		}
		roomID, err := parseID(rawRoom)
		if err != nil {
			return nil, err
		}
		user.Rooms = append(user.Rooms, roomID)
	}

	return &user, rows.Err()
}

// AddUserRoom adds roomID to the user's room set.
func (s *SQLiteStore) AddUserRoom(ctx context.Context, userID, roomID store.ID) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `
		INSERT OR IGNORE INTO user_rooms (user_id, room_id)
		SELECT ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE id = ?)
	`
	result, err := s.db.ExecContext(ctx, query, userID.Hex(), roomID.Hex(), userID.Hex())
	if err != nil {
		return fmt.Errorf("insert user room: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing inserted: either the pair was already present or the user is missing.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID.Hex()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %s: %w", userID.Hex(), store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query user: %w", err)
	}
	return nil
}

// ==== RoomStore implementation ====

// InsertRoom stores a new room and its participants in one transaction.
func (s *SQLiteStore) InsertRoom(ctx context.Context, room *store.Room) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op
	}()

	var pairKey sql.NullString
	if room.PairKey != "" {
		pairKey = sql.NullString{String: room.PairKey, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO rooms (id, type, pair_key, created_at) VALUES (?, ?, ?, ?)`,
		room.ID.Hex(), string(room.Type), pairKey, room.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert room %s: %w", room.PairKey, store.ErrDuplicate)
		}
		return fmt.Errorf("insert room: %w", err)
	}

	for i, participant := range room.Participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO room_participants (room_id, user_id, position) VALUES (?, ?, ?)`,
			room.ID.Hex(), participant.Hex(), i)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("commit room %s: %w", room.PairKey, store.ErrDuplicate)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id store.ID) (*store.Room, error) {
	rooms, err := s.queryRooms(ctx, `WHERE id = ?`, id.Hex())
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("room %s: %w", id.Hex(), store.ErrNotFound)
	}
	return rooms[0], nil
}

// FindPrivateRoom retrieves the private room of a participant pair.
func (s *SQLiteStore) FindPrivateRoom(ctx context.Context, pair store.Pair) (*store.Room, error) {
	rooms, err := s.queryRooms(ctx, `WHERE type = ? AND pair_key = ?`, string(store.RoomTypePrivate), pair.Key())
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("private room %s: %w", pair.Key(), store.ErrNotFound)
	}
	return rooms[0], nil
}

// ListRoomsByIDs retrieves rooms in the order of ids.
func (s *SQLiteStore) ListRoomsByIDs(ctx context.Context, ids []store.ID) ([]*store.Room, error) {
	if len(ids) == 0 {
		return []*store.Room{}, nil
	}

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id.Hex())
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rooms, err := s.queryRooms(ctx, `WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
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

func (s *SQLiteStore) queryRooms(ctx context.Context, where string, args ...any) ([]*store.Room, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `SELECT id, type, COALESCE(pair_key, ''), created_at FROM rooms ` + where
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		var rawID string
		if err := rows.Scan(&rawID, &room.Type, &room.PairKey, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		if room.ID, err = parseID(rawID); err != nil {
			return nil, err
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Release the single connection before issuing the participant queries.
	rows.Close()

	for _, room := range rooms {
		if err := s.loadParticipants(ctx, room); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, room *store.Room) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM room_participants WHERE room_id = ? ORDER BY position`, room.ID.Hex())
	if err != nil {
		return fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		id, err := parseID(raw)
		if err != nil {
			return err
		}
		room.Participants = append(room.Participants, id)
	}
	return rows.Err()
}

// ==== Message log ====

// AppendMessage appends msg to the room's log. The insert is conditioned on the
// room existing, so the affected row count is the match count of the update.
func (s *SQLiteStore) AppendMessage(ctx context.Context, roomID store.ID, msg store.Message) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `
		INSERT INTO messages (room_id, sender, body, created_at)
		SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM rooms WHERE id = ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		roomID.Hex(), msg.Sender, msg.Body, msg.Timestamp.UTC(), roomID.Hex())
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	matched, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return matched, nil
}

// ListMessages retrieves the most recent messages of a room, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID store.ID, limit int) ([]store.Message, error) {
	if limit <= 0 {
		return []store.Message{}, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, roomID.Hex()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("room %s: %w", roomID.Hex(), store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query room: %w", err)
	}

	query := `
		SELECT sender, body, created_at FROM (
			SELECT seq, sender, body, created_at
			FROM messages
			WHERE room_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]store.Message, 0, limit)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.Sender, &msg.Body, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
