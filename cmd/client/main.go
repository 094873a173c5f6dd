package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"socialsync/internal/app"
	"socialsync/internal/config"
	"socialsync/internal/database"
	"socialsync/internal/gateway"
	"socialsync/internal/handler"
	"socialsync/internal/logger"
	"socialsync/internal/media"
	"socialsync/internal/model"
	"socialsync/internal/redis"
	"socialsync/internal/session"
	transport "socialsync/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("client failed: %v", err)
	}
}

func run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Backend gateway
	gw, err := gateway.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, zlog)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	// 3. Session storage
	storage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	sealer, err := session.NewSealer(cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("invalid SESSION_SECRET: %w", err)
	}
	if sealer == nil {
		zlog.Warn("SESSION_SECRET not set, the stored token is not encrypted")
	}
	store := session.NewStore(gw, storage, sealer, zlog)
	if cfg.GoogleClientID != "" {
		store.RequireGoogleAudience(cfg.GoogleClientID)
	}

	// 4. Image host
	uploader, err := media.NewUploader(ctx, cfg, zlog)
	if err != nil {
		zlog.Warn("image uploads disabled", zap.Error(err))
		uploader = nil
	}

	var locator app.Locator
	if cfg.Location != "" {
		loc, err := app.ParseLocation(cfg.Location)
		if err != nil {
			return err
		}
		locator = loc
	}

	// 5. Client context
	client, err := app.New(app.Deps{
		Gateway:    gw,
		Session:    store,
		Uploader:   uploader,
		Locator:    locator,
		SocketURL:  cfg.SocketURL,
		GeoTimeout: cfg.GeoTimeout,
		Log:        zlog,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	switch _, err := client.Restore(ctx); {
	case errors.Is(err, model.ErrNoSession):
		zlog.Info("no stored session, waiting for login")
	case err != nil:
		zlog.Warn("restore session failed", zap.Error(err))
	default:
		if err := client.UpdateLocation(ctx); err != nil {
			zlog.Warn("update location failed", zap.Error(err))
		}
	}

	// 6. Local API
	live := handler.NewLive(client)
	defer live.Close()

	router := transport.NewRouter(transport.RouterConfig{
		AuthHandler:         handler.NewAuthHandler(client, zlog),
		FeedHandler:         handler.NewFeedHandler(live, zlog),
		PostHandler:         handler.NewPostHandler(client, live, zlog),
		CommentHandler:      handler.NewCommentHandler(live, zlog),
		ChatHandler:         handler.NewChatHandler(live, zlog),
		UserHandler:         handler.NewUserHandler(client, live, zlog),
		RelationHandler:     handler.NewRelationHandler(live, zlog),
		NotificationHandler: handler.NewNotificationHandler(live, zlog),
		MediaHandler:        handler.NewMediaHandler(client, zlog),
		AccountHandler:      handler.NewAccountHandler(client, zlog),
		Session:             store,
	})

	srv := transport.NewServer(cfg.ListenAddr, router)
	return transport.Serve(ctx, srv, zlog.Named("http"))
}

// openStorage picks the session backend configured by SESSION_BACKEND.
func openStorage(ctx context.Context, cfg *config.Config) (session.Storage, func(), error) {
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return session.NewMemoryStorage(), func() {}, nil
	case config.SessionBackendRedis:
		if cfg.RedisURL == "" {
			return nil, nil, errors.New("REDIS_URL is required for the redis session backend")
		}
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStorage(client.Client, cfg.SessionProfile), func() { client.Close() }, nil
	case config.SessionBackendSQLite:
		db, err := database.Connect(cfg.SessionDBPath)
		if err != nil {
			return nil, nil, err
		}
		return session.NewSQLiteStorage(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
