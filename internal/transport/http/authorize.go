package http

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
)

// RequestContext is what an Authorizer decides on.
type RequestContext struct {
	Identity session.Identity
	TargetID store.ID
}

// Authorizer allows a request or returns an error explaining why not.
// A denial is a core.KindForbidden error.
type Authorizer func(ctx context.Context, rc RequestContext) error

// RoomParticipant allows callers that participate in the target room.
func RoomParticipant(rooms store.RoomStore) Authorizer {
	return func(ctx context.Context, rc RequestContext) error {
		room, err := rooms.GetRoom(ctx, rc.TargetID)
		if err != nil {
			return core.FromStore(err, "Room does not exist.")
		}
		if !slices.Contains(room.Participants, rc.Identity.UserID) {
			return core.NewError(core.KindForbidden, "", nil)
		}
		return nil
	}
}

// Authorize runs authz against the identity set by AuthMiddleware and the ":id" path parameter.
func Authorize(authz Authorizer, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok {
			abortWithError(c, core.NewError(core.KindAuthentication, "", nil))
			return
		}

		target, err := store.ParseID(c.Param("id"))
		if err != nil {
			abortWithError(c, core.NewError(core.KindValidation, "Invalid room object id.", err))
			return
		}

		if err := authz(c.Request.Context(), RequestContext{Identity: identity, TargetID: target}); err != nil {
			if core.KindOf(err) == core.KindForbidden {
				logger.Debug().Str("user", identity.Username).Str("target", target.Hex()).Msg("request denied")
			}
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}
