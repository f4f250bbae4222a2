package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"metaverse2d/internal/config"
	"metaverse2d/internal/database/db_client"
	"metaverse2d/internal/database/migrations"
	"metaverse2d/internal/http/http_server"
	"metaverse2d/internal/redis/redis_client"
	"metaverse2d/internal/services/auth"
	"metaverse2d/internal/services/space"
	"metaverse2d/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.LogProduction {
		if prod, err := zap.NewProduction(); err == nil {
			Log = prod
			zap.ReplaceGlobals(Log)
		}
	}
	Log.Debug("Configuration loaded successfully",
		zap.Uint16("port", cfg.HttpServerPort),
		zap.String("postgres_host", cfg.PostgresHost),
		zap.String("redis_host", cfg.RedisHost))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis space cache
	redisClient, err = redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres db client + schema
	pgDb, err := db_client.Open(cfg.PostgresURL())
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()
	if cfg.PostgresMigrate {
		if err := migrations.Up(pgDb); err != nil {
			Log.Fatal("pg-migrate", zap.Error(err))
		}
	}

	// 5. Collaborators consumed by the presence engine
	authService := auth.NewAuthService(cfg.JWTSecret)
	spaceService := space.NewSpaceService(pgDb, redisClient, cfg.SpaceCacheTTL)

	// 6. Room registry, one per process
	registry := ws.NewRegistry()

	// 7. Initialize the WS server
	wsSrv := ws.NewWsServer(registry, authService, spaceService,
		ws.WithJoinTimeout(cfg.WsJoinTimeout),
		ws.WithReadLimit(cfg.WsReadLimit),
		ws.WithSendBuffer(cfg.WsSendBuffer),
		ws.WithRateLimit(cfg.WsMsgRate, cfg.WsMsgBurst),
		ws.WithAllowedOrigins(cfg.WsAllowedOrigins),
	)

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, registry)
	go func() {
		<-ctx.Done()
		Log.Info("Shutting down")
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
