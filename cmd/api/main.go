package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-ip-ledger/internal/adapter"
	"github.com/feral-file/ff-ip-ledger/internal/api/middleware"
	"github.com/feral-file/ff-ip-ledger/internal/api/server"
	"github.com/feral-file/ff-ip-ledger/internal/cache"
	"github.com/feral-file/ff-ip-ledger/internal/config"
	"github.com/feral-file/ff-ip-ledger/internal/dispute"
	"github.com/feral-file/ff-ip-ledger/internal/gateway"
	"github.com/feral-file/ff-ip-ledger/internal/ledger"
	"github.com/feral-file/ff-ip-ledger/internal/logger"
	"github.com/feral-file/ff-ip-ledger/internal/ratelimit"
	"github.com/feral-file/ff-ip-ledger/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "ip-ledger-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting IP Ownership Ledger API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store and adapters
	dataStore := store.NewPGStore(db)
	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()

	// Connect to Redis for the owners cache
	redisClient := adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisClient.Ping(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}()
	logger.InfoCtx(ctx, "Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	ownersCache := cache.NewOwnersCache(redisClient, cfg.Cache.OwnersTTL)

	// Per-client request limiter shares the cache's Redis connection
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			KeyPrefix:         cfg.RateLimit.KeyPrefix,
		}, redisClient)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to initialize rate limiter", zap.Error(err))
		}
	}

	// Connect to NATS for stakeholder notifications
	notifier, err := gateway.NewNATSNotifier(gateway.NATSConfig{
		URL:             cfg.NATS.URL,
		SubjectPrefix:   cfg.NATS.SubjectPrefix,
		MaxReconnects:   cfg.NATS.MaxReconnects,
		ReconnectWait:   cfg.NATS.ReconnectWait,
		ConnectionName:  cfg.NATS.ConnectionName,
		FanoutWorkers:   cfg.NATS.FanoutWorkers,
		PublishRetryMax: cfg.NATS.PublishRetryMax,
	}, jsonAdapter, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer notifier.Close()
	logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))

	// Assemble the ledger
	audit := gateway.NewStoreAudit(dataStore)
	ledgerService := ledger.NewService(dataStore, ownersCache, audit, notifier, clock)
	disputeWorkflow := dispute.NewWorkflow(dataStore, ownersCache, audit, notifier, clock)

	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimiter:    limiter,
	}

	srv := server.New(serverConfig, ledgerService, disputeWorkflow)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
