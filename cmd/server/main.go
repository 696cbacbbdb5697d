package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deal_room/internal/analysis"
	"deal_room/internal/config"
	"deal_room/internal/handler"
	"deal_room/internal/middleware"
	"deal_room/internal/notify"
	"deal_room/internal/realtime"
	"deal_room/internal/repository"
	"deal_room/internal/service"
	"deal_room/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	repos, broker, cleanup := setupStorage(cfg, appLogger)
	defer cleanup()

	rules, err := analysis.LoadRules(cfg.Analysis.RulesPath)
	if err != nil {
		appLogger.Fatal("Failed to load analysis rules", "error", err)
	}

	notifier := notify.Nop()
	if cfg.Slack.BotToken != "" {
		notifier = notify.NewSlackNotifier(cfg.Slack.BotToken, cfg.Slack.ChannelID, appLogger)
		appLogger.Info("Slack summary notifications enabled", "channel", cfg.Slack.ChannelID)
	}

	services := service.NewServices(repos, service.Dependencies{
		Broker:   broker,
		Notifier: notifier,
		Analyzer: analysis.NewAnalyzer(rules),
		Clock:    clockwork.NewRealClock(),
	}, cfg, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.Issuer, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.RateLimit.Requests, cfg.RateLimit.Window, appLogger)

	handlers := handler.NewHandlers(services, cfg, appLogger)
	router := handler.SetupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	// Таймеры звонков и отложенные сводки
	services.Shutdown()

	appLogger.Info("Server exited")
}

// setupStorage подключает Postgres и Redis либо собирает in-memory backend
func setupStorage(cfg *config.Config, appLogger logger.Logger) (*repository.Repositories, realtime.Broker, func()) {
	if cfg.Storage.Backend == config.StorageBackendMemory {
		broker := realtime.NewMemoryBroker()
		return repository.NewMemoryRepositories(appLogger), broker, func() { _ = broker.Close() }
	}

	ctx := context.Background()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Invalid database DSN", "error", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	broker := realtime.NewRedisBroker(rdb, appLogger)
	cleanup := func() {
		_ = broker.Close()
		_ = rdb.Close()
		dbPool.Close()
	}
	return repository.NewRepositories(dbPool, rdb, appLogger), broker, cleanup
}
