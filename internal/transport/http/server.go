package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/config"
	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/metrics"
	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
)

const healthTimeout = 2 * time.Second

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Engine   *core.Engine
	Store    store.Store
	Sessions session.Store
	Verifier auth.Verifier
}

// NewServer builds the HTTP server: websocket endpoint, REST read API, health and metrics.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler(deps.Store, deps.Sessions, logger))
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	router.GET("/ws", gin.WrapH(NewWSHandler(deps.Engine, cfg.WS, logger)))

	rooms := NewRoomHandlers(deps.Store, logger)
	api := router.Group("/api", AuthMiddleware(deps.Verifier, deps.Store, logger))
	{
		api.GET("/rooms", rooms.ListRooms)
		api.GET("/rooms/:id/messages", Authorize(RoomParticipant(deps.Store), logger), rooms.ListMessages)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(st store.Store, sessions session.Store, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("store health check failed")
			abortWithError(c, core.NewError(core.KindUnavailable, "Store unreachable.", err))
			return
		}
		if err := sessions.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("session health check failed")
			abortWithError(c, core.NewError(core.KindUnavailable, "Session store unreachable.", err))
			return
		}
		c.String(stdhttp.StatusOK, "ok")
	}
}
