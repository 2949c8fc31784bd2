package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/auth"
	"github.com/vovakirdan/coderoom-server/internal/bus"
	"github.com/vovakirdan/coderoom-server/internal/config"
	"github.com/vovakirdan/coderoom-server/internal/core"
	"github.com/vovakirdan/coderoom-server/internal/log"
	"github.com/vovakirdan/coderoom-server/internal/store"
	"github.com/vovakirdan/coderoom-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/coderoom-server/internal/transport/http"
)

// App wires together store, auth, bus, hub and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	bus             bus.Bus
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	var b bus.Bus
	switch cfg.BusKind {
	case config.BusKindNATS:
		b, err = bus.NewNATS(cfg.NATSURL, cfg.NATSSubjectPrefix, log.Component(logger, "bus"))
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("connect bus: %w", err)
		}
		logger.Info().Str("url", cfg.NATSURL).Msg("nats bus connected")
	default:
		b = bus.NewLocal(log.Component(logger, "bus"))
	}

	hub := core.NewHub(st, authService, b, log.Component(logger, "hub"))
	server := transporthttp.NewServer(hub, authService, st, cfg, log.Component(logger, "http"))

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		bus:             b,
		log:             logger,
	}, nil
}

// Run starts the hub and HTTP server, blocking until the context is
// cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	go a.hub.Run(ctx)

	serverErr := make(chan error, 1)
	go func() {
		err := a.server.ListenAndServe()
		if errors.Is(err, stdhttp.ErrServerClosed) {
			err = nil
		}
		serverErr <- err
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.log.Info().Msg("shutting down http server")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-serverErr
}

// cleanup closes the bus and database.
func (a *App) cleanup() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close bus")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
