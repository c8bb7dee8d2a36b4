package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/chit-service/internal/adapters/cache"
	"github.com/kevin07696/chit-service/internal/adapters/gateway"
	"github.com/kevin07696/chit-service/internal/adapters/memory"
	"github.com/kevin07696/chit-service/internal/adapters/postgres"
	"github.com/kevin07696/chit-service/internal/app"
	"github.com/kevin07696/chit-service/internal/auth"
	"github.com/kevin07696/chit-service/internal/config"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/handlers"
	"github.com/kevin07696/chit-service/internal/middleware"
	"github.com/kevin07696/chit-service/pkg/observability"
	"github.com/kevin07696/chit-service/pkg/resilience"
	"github.com/kevin07696/chit-service/pkg/shutdown"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger := initLogger(os.Getenv("ENVIRONMENT"))
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting chit service",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("port", cfg.Server.Port),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	healthChecker := observability.NewHealthChecker()
	readiness := &observability.Readiness{}

	repos, err := initRepositories(ctx, cfg, shutdownMgr, healthChecker, logger)
	if err != nil {
		return err
	}

	planCache, err := initPlanCache(ctx, cfg, shutdownMgr, healthChecker, logger)
	if err != nil {
		return err
	}

	secretManager, err := initSecretManager(ctx, &cfg.Secrets, logger)
	if err != nil {
		return err
	}
	keySecret, err := resolveGatewaySecret(ctx, &cfg.Gateway, secretManager, logger)
	if err != nil {
		return err
	}

	timeouts := resilience.DefaultTimeoutConfig()
	gatewayClient, err := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		KeyID:       cfg.Gateway.KeyID,
		KeySecret:   keySecret,
		Timeouts:    timeouts,
		MaxAttempts: cfg.Gateway.MaxAttempts,
	}, logger.Named("gateway"))
	if err != nil {
		return fmt.Errorf("gateway client: %w", err)
	}

	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("read JWT public key: %w", err)
	}
	verifier, err := auth.NewTokenVerifier(publicKey, cfg.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("JWT verifier: %w", err)
	}

	services := app.NewServices(repos, app.Options{
		Gateway:        gatewayClient,
		PlanCache:      planCache,
		CommissionRate: cfg.Business.CommissionRate,
		Currency:       cfg.Business.Currency,
	}, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	shutdownMgr.RegisterNoErr("rate_limiter", rateLimiter.Shutdown)

	inflight := shutdown.NewInFlightTracker("http", logger)
	router := handlers.NewRouter(services, handlers.RouterConfig{
		Verifier:      verifier,
		RateLimiter:   rateLimiter,
		IsDevelopment: !cfg.IsProduction(),
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           inflight.Middleware(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeouts.HTTPHandler,
		WriteTimeout:      timeouts.HTTPHandler + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker, readiness, logger)
	shutdownMgr.Register("metrics_server", metricsServer.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Registered last so it stops first
	shutdownMgr.Register("http_server", func(ctx context.Context) error {
		readiness.SetReady(false)
		if err := inflight.Shutdown(ctx); err != nil {
			return err
		}
		return httpServer.Shutdown(ctx)
	})
	readiness.SetReady(true)

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := <-serveErr; err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	return shutdownMgr.WaitForShutdown(waitCtx)
}

func initRepositories(ctx context.Context, cfg *config.Config, mgr *shutdown.Manager, hc *observability.HealthChecker, logger *zap.Logger) (app.Repositories, error) {
	if cfg.Storage.Backend == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return app.NewMemoryRepositories(memory.NewStore()), nil
	}

	dbCfg := postgres.DefaultConfig(cfg.Database.ConnectionString())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := postgres.Connect(connectCtx, dbCfg, logger.Named("postgres"))
	if err != nil {
		return app.Repositories{}, fmt.Errorf("database: %w", err)
	}
	mgr.RegisterNoErr("database", db.Close)
	hc.AddCheck("database", db.HealthCheck)

	monitor := shutdown.NewBackgroundWorker("pool_monitor", logger)
	monitor.Start(func(ctx context.Context) { db.MonitorPool(ctx, cfg.Database.MonitorInterval) })
	mgr.Register("pool_monitor", monitor.Shutdown)

	return app.NewPostgresRepositories(db), nil
}

func initPlanCache(ctx context.Context, cfg *config.Config, mgr *shutdown.Manager, hc *observability.HealthChecker, logger *zap.Logger) (ports.PlanCache, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}

	client, err := cache.NewRedisClient(ctx, &cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		return nil, err
	}
	mgr.RegisterCloser("redis", client)

	planCache := cache.NewRedisPlanCache(client, cfg.Redis.TTL, logger.Named("plan_cache"))
	hc.AddCheck("redis", planCache.HealthCheck)
	logger.Info("Plan cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	return planCache, nil
}

func initLogger(env string) *zap.Logger {
	if env == "production" {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		logger, err := zapCfg.Build()
		if err != nil {
			panic(err)
		}
		return logger
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}
