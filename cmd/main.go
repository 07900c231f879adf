package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/canvas-service/config"
	"github.com/cwrk-planet/canvas-service/internal/postgres"
	"github.com/cwrk-planet/canvas-service/internal/registry"
	"github.com/cwrk-planet/canvas-service/internal/service"
	httpx "github.com/cwrk-planet/canvas-service/internal/transport/http"
	httpmw "github.com/cwrk-planet/canvas-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/canvas-service/internal/transport/ws"
	"github.com/cwrk-planet/canvas-service/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting canvas-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	roomRepo := postgres.NewRoomRepository(db.Pool)
	itemRepo := postgres.NewItemRepository(db.Pool)
	chatRepo := postgres.NewChatRepository(db.Pool)

	// --- services ---
	roomSvc := service.NewRoomService(roomRepo)
	itemSvc := service.NewItemService(itemRepo)
	chatSvc := service.NewChatService(chatRepo)

	// --- registry & protocol engine ---
	reg := registry.New()
	wsServer := ws.NewServer(reg, roomSvc, itemSvc, chatSvc, cfg.PingEvery())

	// --- redis (опционально, только для лимитера) ---
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
	}
	limiter := httpmw.NewRateLimiter(rdb, "ratelimit:create_room",
		cfg.RateLimit.CreateRoomPerMinute, time.Minute)

	// --- HTTP ---
	handler := httpx.NewHandler(roomSvc, chatSvc, reg)
	router := httpx.NewRouter(handler, wsServer, limiter.Middleware)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
