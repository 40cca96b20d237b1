package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// RoomHandlers provides the read-only REST view of rooms.
type RoomHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store: st,
		log:   logger,
	}
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Participants []string `json:"participants"`
	CreatedAt    string   `json:"created_at"`
}

// ListRoomsResponse is the body of GET /api/rooms.
type ListRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// MessagesResponse is the body of GET /api/rooms/:id/messages.
type MessagesResponse struct {
	Room     string               `json:"room"`
	Messages []proto.EventMessage `json:"messages"`
}

// ListRooms handles listing the caller's rooms.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		abortWithError(c, core.NewError(core.KindAuthentication, "", nil))
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user", identity.Username).Msg("failed to load user")
		abortWithError(c, core.FromStore(err, "User does not exist."))
		return
	}

	rooms, err := h.store.ListRoomsByIDs(c.Request.Context(), user.Rooms)
	if err != nil {
		h.log.Error().Err(err).Str("user", identity.Username).Msg("failed to list rooms")
		abortWithError(c, core.FromStore(err, ""))
		return
	}

	c.JSON(http.StatusOK, ListRoomsResponse{
		Rooms: lo.Map(rooms, func(room *store.Room, _ int) RoomResponse {
			return RoomResponse{
				ID:   room.ID.Hex(),
				Type: string(room.Type),
				Participants: lo.Map(room.Participants, func(id store.ID, _ int) string {
					return id.Hex()
				}),
				CreatedAt: room.CreatedAt.UTC().Format(time.RFC3339),
			}
		}),
	})
}

// ListMessages returns the latest messages of a room, oldest first.
// GET /api/rooms/:id/messages?limit=N
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	roomID, err := store.ParseID(c.Param("id"))
	if err != nil {
		abortWithError(c, core.NewError(core.KindValidation, "Invalid room object id.", err))
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortWithError(c, core.NewError(core.KindValidation, "Limit must be a positive integer.", err))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), roomID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID.Hex()).Msg("failed to list messages")
		abortWithError(c, core.FromStore(err, "Room does not exist."))
		return
	}

	c.JSON(http.StatusOK, MessagesResponse{
		Room: roomID.Hex(),
		Messages: lo.Map(msgs, func(m store.Message, _ int) proto.EventMessage {
			return proto.EventMessage{
				Room:      roomID.Hex(),
				Sender:    m.Sender,
				Message:   m.Body,
				Timestamp: m.Timestamp,
			}
		}),
	})
}
