package http

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
)

const (
	// ContextKeyIdentity is the context key for storing the caller's session.Identity.
	ContextKeyIdentity = "identity"
)

// AuthMiddleware validates the bearer token and resolves the caller's user record.
func AuthMiddleware(verifier auth.Verifier, users store.UserStore, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			logger.Debug().Err(err).Msg("rejecting request without bearer token")
			abortWithError(c, core.NewError(core.KindAuthentication, "", err))
			return
		}

		claim, err := verifier.Verify(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			abortWithError(c, core.NewError(core.KindAuthentication, "", err))
			return
		}

		user, err := users.GetUserByUsername(c.Request.Context(), claim.Username)
		if errors.Is(err, store.ErrNotFound) {
			abortWithError(c, core.NewError(core.KindAuthentication, "Unknown user.", err).
				WithResolution("Connect over the websocket once to register the account."))
			return
		}
		if err != nil {
			logger.Warn().Err(err).Str("user", claim.Username).Msg("user lookup failed")
			abortWithError(c, core.FromStore(err, ""))
			return
		}

		c.Set(ContextKeyIdentity, session.Identity{UserID: user.ID, Username: user.Username})
		c.Next()
	}
}

// identityFrom returns the identity stored by AuthMiddleware.
func identityFrom(c *gin.Context) (session.Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return session.Identity{}, false
	}
	id, ok := v.(session.Identity)
	return id, ok
}

// abortWithError writes the refusal body for err and stops the chain.
func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(core.KindOf(err)), proto.Refusal{Error: *protoError(err)})
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
