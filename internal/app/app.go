package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/config"
	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/session"
	"github.com/vovakirdan/pairchat/internal/store"
	"github.com/vovakirdan/pairchat/internal/store/mongodb"
	"github.com/vovakirdan/pairchat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/pairchat/internal/transport/http"
	"github.com/vovakirdan/pairchat/internal/utils"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	sessions        session.Store
	log             *zerolog.Logger
}

// JWTConfig derives the token settings from cfg.
func JWTConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
}

// OpenStore opens the durable store selected by cfg.Store.Driver and applies its schema.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "mongo":
		st, err = mongodb.New(ctx, mongodb.Options{
			URI:         cfg.Store.MongoURI,
			Database:    cfg.Store.MongoDatabase,
			MaxPoolSize: cfg.Store.MongoMaxPool,
			MinPoolSize: cfg.Store.MongoMinPool,
			OpTimeout:   cfg.Store.OpTimeout,
		})
	case "sqlite":
		st, err = sqlite.New(cfg.Store.SQLitePath, cfg.Store.OpTimeout)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	logger.Info().Str("driver", cfg.Store.Driver).Msg("store initialized")
	return st, nil
}

// OpenSessions opens the session store selected by cfg.Session.Driver. Redis keys are
// scoped to this process so that shutdown only purges its own entries.
func OpenSessions(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (session.Store, error) {
	switch cfg.Session.Driver {
	case "redis":
		prefix := cfg.Session.KeyPrefix + utils.NewID() + ":"
		sessions, err := session.NewRedis(ctx, cfg.Session.RedisURL, prefix)
		if err != nil {
			return nil, fmt.Errorf("init sessions: %w", err)
		}
		logger.Info().Str("driver", "redis").Str("prefix", prefix).Msg("session store initialized")
		return sessions, nil
	case "memory":
		logger.Info().Str("driver", "memory").Msg("session store initialized")
		return session.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
	}
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sessions, err := OpenSessions(ctx, cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	verifier := auth.NewService(st, JWTConfig(cfg)).Verifier()
	engine := core.NewEngine(core.Options{
		Verifier: verifier,
		Store:    st,
		Sessions: sessions,
		Buffer:   cfg.WS.SendBuffer,
		Logger:   logger,
	})

	server := transporthttp.NewServer(transporthttp.Deps{
		Engine:   engine,
		Store:    st,
		Sessions: sessions,
		Verifier: verifier,
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		sessions:        sessions,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	// Websocket handlers outlive Shutdown, so they observe cancellation through the base context.
	a.server.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.cleanup()
	return err
}

// cleanup purges owned sessions and closes the store.
func (a *App) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.sessions.Close(ctx); err != nil {
		a.log.Warn().Err(err).Msg("failed to close session store")
	} else {
		a.log.Info().Msg("session store closed")
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}
