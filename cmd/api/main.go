package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Luis-avalos1/TaskFlow/internal/app/migrate"
	httpx "github.com/Luis-avalos1/TaskFlow/internal/http"
	"github.com/Luis-avalos1/TaskFlow/internal/repository/postgres"
	"github.com/Luis-avalos1/TaskFlow/internal/service/access"
	"github.com/Luis-avalos1/TaskFlow/internal/service/auth"
	"github.com/Luis-avalos1/TaskFlow/internal/service/project"
	"github.com/Luis-avalos1/TaskFlow/internal/service/task"
	"github.com/Luis-avalos1/TaskFlow/internal/ws"
	"github.com/Luis-avalos1/TaskFlow/pkg/config"
	"github.com/Luis-avalos1/TaskFlow/pkg/logger"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logger.New("api", slog.LevelInfo).Warn("failed to load .env", "error", err)
	}
	cfg := config.LoadAPIConfig()
	log := logger.New("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	var (
		limiter     httpx.RateLimiter
		revocations auth.Revocations
	)
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RateLimitRedisPass,
			DB:       cfg.RateLimitRedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unavailable, using in-memory rate limiting and revocation", "addr", addr, "error", err)
		} else {
			limiter = httpx.NewRedisRateLimiter(rdb, log)
			revocations = auth.NewRedisRevocations(rdb)
		}
	}

	repo := postgres.New(pool)
	hub := ws.NewHub(access.New(repo, repo), log)

	authSvc := auth.New(repo, revocations, log, cfg)
	projectSvc := project.New(repo, repo, repo, hub, log)
	taskSvc := task.New(repo, repo, repo, hub, log)

	router := httpx.NewRouter(log, authSvc, projectSvc, taskSvc, hub, limiter, httpx.OptionsFromConfig(cfg), pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.Info("api server starting", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("api server stopped")
}
