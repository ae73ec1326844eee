package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/cache"
	"github.com/vovakirdan/wirechat-gateway/internal/config"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/plugins"
	"github.com/vovakirdan/wirechat-gateway/internal/service/follows"
	"github.com/vovakirdan/wirechat-gateway/internal/service/messaging"
	"github.com/vovakirdan/wirechat-gateway/internal/service/notifications"
	"github.com/vovakirdan/wirechat-gateway/internal/service/user"
	"github.com/vovakirdan/wirechat-gateway/internal/socket"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
	"github.com/vovakirdan/wirechat-gateway/internal/store/redis"
	"github.com/vovakirdan/wirechat-gateway/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-gateway/internal/transport/http"
)

// publicRoomsCacheSize bounds the derived public-room views kept in memory.
const publicRoomsCacheSize = 64

// App wires together storage, services, the gateway and transport layers.
type App struct {
	server          *transporthttp.Server
	shutdownTimeout time.Duration
	hub             *socket.Hub
	stopHub         context.CancelFunc
	gateway         *gateway.Gateway
	store           store.Store
	redis           *redis.KV
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}

	kv, err := a.openKV(ctx, cfg.KV, st)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	hub := socket.NewHub(logger)
	a.hub = hub

	hooks := plugins.New()
	hooks.RegisterSendFilter("normalize-line-endings", plugins.DefaultPriority, plugins.NormalizeLineEndings)

	notifs := notifications.New(st, hub, logger)
	users := user.New(st, kv, notifs, logger)
	publicRooms := cache.New[[]int64](publicRoomsCacheSize, cfg.Chat.PublicRoomsCacheTTL)
	msgs := messaging.New(st, kv, hub, users, notifs, publicRooms, messaging.Config{
		MaximumMessageLength: cfg.Chat.MaximumMessageLength,
	}, logger)

	a.gateway = gateway.New(gateway.Deps{
		Messaging:     msgs,
		Users:         users,
		Notifications: notifs,
		DB:            kv,
		Cache:         publicRooms,
		Sockets:       hub,
		Hooks:         hooks,
		Sessions:      gateway.NewSessions(cfg.Chat.MaxSessions, cfg.Chat.SessionTTL),
	}, gateway.Settings{
		NewbieReputationThreshold: cfg.Chat.NewbieReputationThreshold,
		ChatMessageDelay:          cfg.Chat.MessageDelay,
		NewbieChatMessageDelay:    cfg.Chat.NewbieMessageDelay,
	}, logger)

	authService := auth.NewService(st, JWTConfig(cfg))

	a.server = transporthttp.NewServer(transporthttp.Deps{
		Gateway: a.gateway,
		Auth:    authService,
		Hub:     hub,
		Rooms:   msgs,
		Follows: follows.New(st),
	}, *cfg, logger)

	return a, nil
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

func (a *App) openKV(ctx context.Context, cfg config.KVConfig, st *sqlite.SQLiteStore) (store.KV, error) {
	if cfg.Backend != config.KVBackendRedis {
		return st, nil
	}
	kv, err := redis.New(ctx, redis.Options{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		KeyPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("init redis kv: %w", err)
	}
	a.redis = kv
	a.log.Info().Str("addr", cfg.RedisAddr).Msg("redis kv connected")
	return kv, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	// The hub outlives ctx so websocket handlers can unregister while the
	// server drains them.
	hubCtx, stopHub := context.WithCancel(context.Background())
	a.stopHub = stopHub
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting wirechat gateway")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup waits for background chat work, stops the hub, then closes storage.
// Websocket connections are already closed by server.Shutdown.
func (a *App) cleanup() {
	if a.gateway != nil {
		a.gateway.Wait()
	}
	if a.stopHub != nil {
		a.stopHub()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis")
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
