// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nexxstore/storefront/internal/admin"
	"github.com/nexxstore/storefront/internal/auth"
	"github.com/nexxstore/storefront/internal/config"
	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/health"
	"github.com/nexxstore/storefront/internal/middleware"
	"github.com/nexxstore/storefront/internal/money"
	"github.com/nexxstore/storefront/internal/order"
	"github.com/nexxstore/storefront/internal/server"
	"github.com/nexxstore/storefront/internal/session"
	"github.com/nexxstore/storefront/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	genKeys := flag.Bool("genkeys", false, "write a new session sealing key pair and exit")
	privateKey := flag.String("private-key", "keys/session.pem", "private key path for -genkeys")
	publicKey := flag.String("public-key", "keys/session.pub.pem", "public key path for -genkeys")
	flag.Parse()

	if *genKeys {
		if err := auth.GenerateKeyPair(*privateKey, *publicKey); err != nil {
			slog.Error("generate keys", "error", err)
			os.Exit(1)
		}
		slog.Info("session keys written", "private", *privateKey, "public", *publicKey)
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("read .env", "error", err)
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database, cfg.ServiceName())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.Migrate {
		if err := user.Migrate(ctx, db.DB); err != nil {
			return err
		}
		if err := order.Migrate(ctx, db.DB); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	rdb, err := core.NewRedis(ctx, cfg.Redis, cfg.ServiceName())
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}()
	var redisClient *redis.Client
	if rdb != nil {
		redisClient = rdb.Client
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	}

	storage, err := newStorage(cfg, redisClient)
	if err != nil {
		return err
	}

	sealer, err := newSealer(cfg, logger)
	if err != nil {
		return err
	}

	userRepo := user.NewRepository(db.DB)
	orderRepo := order.NewRepository(db.DB)

	if err := ensureAdmin(ctx, userRepo, cfg.Bootstrap, logger); err != nil {
		return err
	}

	manager := session.New(ctx, session.Config{
		StorageKey:            cfg.Storage.Key,
		StoreTimeout:          cfg.Session.StoreTimeout,
		CreditLimitIndividual: money.Rubles(cfg.Registration.CreditLimitIndividual),
		CreditLimitLegal:      money.Rubles(cfg.Registration.CreditLimitLegal),
	}, userRepo, orderRepo, storage, sealer, logger)

	unsubscribe := manager.Subscribe(func(v session.View) {
		logger.Debug("session changed",
			"authenticated", v.Authenticated,
			"user_id", v.UserID,
			"role", v.Role,
		)
	})
	defer unsubscribe()

	sessionHandler := session.NewHandler(manager)

	healthHandler := health.NewHandler()
	healthHandler.Register("database", db)
	if rdb != nil {
		healthHandler.Register("redis", rdb)
	}
	if checker, ok := storage.(health.Checker); ok {
		healthHandler.Register("session_storage", checker)
	}

	adminCfg := admin.HandlerConfig{
		Stats:   orderRepo,
		DBStats: db.Stats,
		DBPing:  db.Ping,
	}
	if rdb != nil {
		adminCfg.RedisStats = rdb.PoolStats
		adminCfg.RedisPing = rdb.Ping
	}
	adminHandler := admin.NewHandler(adminCfg)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	credentialLimiter := middleware.NewRateLimiter(
		redisClient,
		middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			KeyFunc:  middleware.KeyByScopedIP("credentials"),
			FailOpen: true,
		},
	)

	healthHandler.RegisterRoutes(router)

	router.Route("/v1", func(r chi.Router) {
		sessionHandler.RegisterRoutes(r, credentialLimiter.Handler)
		adminHandler.RegisterRoutes(
			r,
			middleware.RequirePermission(manager, auth.PermDashboardView),
			middleware.RequireAdmin(manager),
		)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	logger.Info("application stopped")
	return nil
}

func newStorage(cfg *config.Config, rdb *redis.Client) (session.Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis session storage needs REDIS_URL")
		}
		return session.NewRedisStorage(rdb, cfg.Storage.TTL), nil
	case config.StorageDriverMemory:
		return session.NewMemoryStorage(), nil
	default:
		return session.NewFileStorage(cfg.Storage.Dir)
	}
}

// newSealer loads the sealing key, generating one on first run outside
// production.
func newSealer(cfg *config.Config, logger *slog.Logger) (*auth.Sealer, error) {
	sealer, err := auth.NewSealer(cfg.Seal)
	if err == nil {
		return sealer, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || cfg.IsProduction() {
		return nil, err
	}

	logger.Warn("session key missing, generating a new pair",
		"path", cfg.Seal.PrivateKeyPath,
	)
	if err := auth.GenerateKeyPair(cfg.Seal.PrivateKeyPath, cfg.Seal.PublicKeyPath); err != nil {
		return nil, err
	}
	return auth.NewSealer(cfg.Seal)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
