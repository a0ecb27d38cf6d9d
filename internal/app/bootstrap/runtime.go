package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheadapter "github.com/strataboard/authcore/internal/adapters/cache"
	httpadapter "github.com/strataboard/authcore/internal/adapters/http"
	"github.com/strataboard/authcore/internal/adapters/postgres"
	"github.com/strataboard/authcore/internal/adapters/security"
	"github.com/strataboard/authcore/internal/application"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping authcore", "service_id", cfg.ServiceID, "http_port", cfg.HTTPPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	tokens, err := security.NewResourceTokenCodec([]byte(cfg.ResourceTokenSecret))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init resource token codec: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	hasher := security.NewHasherRegistry(security.Argon2Params{
		Time:      cfg.Argon2Time,
		MemoryKiB: cfg.Argon2Memory,
		Threads:   cfg.Argon2Threads,
	})

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			SingleSession:       cfg.SingleSession,
			SessionTTL:          cfg.SessionTTL,
			IdleTimeout:         cfg.IdleTimeout,
			ExtendWindow:        cfg.ExtendWindow,
			ExtendBy:            cfg.ExtendBy,
			ResourceTokenMaxAge: cfg.ResourceTokenMaxAge,
			ThrottleThreshold:   cfg.LoginThrottleThreshold,
			ThrottleWindow:      cfg.LoginThrottleWindow,
		},
		Principals:  repos.Principals,
		Sessions:    repos.Sessions,
		AccessLog:   repos.AccessLog,
		Revocations: cacheadapter.NewRedisSessionRevocationStore(redisClient),
		Throttle:    cacheadapter.NewRedisLoginThrottle(redisClient),
		Hasher:      hasher,
		Tokens:      tokens,
		Logger:      logger,
	})

	handler := httpadapter.NewHandler(svc, cfg.AdminAPIToken)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}
