package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"session-auth/internal/auth"
	"session-auth/internal/config"
	apphttp "session-auth/internal/http"
	"session-auth/internal/metrics"
	"session-auth/internal/repository"
	"session-auth/internal/repository/memory"
	"session-auth/internal/repository/postgres"
	"session-auth/internal/repository/sqlite"
	"session-auth/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openUserRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open credential store: %v", err)
	}
	defer closeStore()

	if err := users.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatalf("setup tokens: %v", err)
	}
	revocations := auth.NewMemoryRevocationRegistry()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterRevokedGauge(reg, revocations.Len)

	authService, err := service.NewAuthService(
		users,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		revocations,
		logger,
		metrics.New(reg),
	)
	if err != nil {
		logger.Fatalf("setup auth service: %v", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	apphttp.NewHandler(authService, logger, reg).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s (env %s, store %s)", cfg.Server.Addr, cfg.Env, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Env == config.EnvProduction {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func openUserRepository(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		return sqlite.NewUserRepository(db), func() { db.Close() }, nil
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres database")
		return postgres.NewUserRepository(pool), pool.Close, nil
	case config.DriverMemory:
		logger.Warn("using in-memory user store, accounts are lost on restart")
		return memory.NewUserRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
