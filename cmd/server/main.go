// Package main is the entrypoint for the BidHub API server.
package main

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

	"github.com/kiranshivaraju/bidhub/internal/accounts"
	"github.com/kiranshivaraju/bidhub/internal/api"
	"github.com/kiranshivaraju/bidhub/internal/api/handler"
	mw "github.com/kiranshivaraju/bidhub/internal/api/middleware"
	"github.com/kiranshivaraju/bidhub/internal/bidding"
	"github.com/kiranshivaraju/bidhub/internal/cache"
	"github.com/kiranshivaraju/bidhub/internal/config"
	"github.com/kiranshivaraju/bidhub/internal/jobs"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/internal/store/memstore"
)

const shutdownTimeout = 30 * time.Second

var logLevel = new(slog.LevelVar)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logLevel.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}
	slog.Info("config loaded", "store_driver", cfg.Database.Driver, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open store
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. Open cache
	ca, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	// 4. Create services
	acct := accounts.NewService(st)
	if cfg.Server.AdminEmail != "" {
		if err := bootstrapAdmin(ctx, acct, cfg.Server.AdminEmail); err != nil {
			return err
		}
	}

	// 5. Build router with dependencies
	router := newRouter(st, ca, acct, cfg)

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// openStore connects to Postgres and applies migrations, or returns an
// in-process store for the memory driver.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	return store.NewPostgresStore(pool), pool.Close, nil
}

// openCache connects to Redis. Without a REDIS_URL (memory driver only) the
// cache lives in process.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.Redis.URL == "" {
		slog.Warn("REDIS_URL not set, using in-process cache")
		return cache.NewMemoryCache(), func() {}, nil
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		redisCache.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	return redisCache, func() { redisCache.Close() }, nil
}

func bootstrapAdmin(ctx context.Context, acct *accounts.Service, email string) error {
	rawKey, created, err := acct.BootstrapAdmin(ctx, email)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if !created {
		return nil
	}
	slog.Info("bootstrap admin created", "email", email)
	// The raw key is unrecoverable once this process exits.
	fmt.Fprintf(os.Stderr, "admin api key for %s: %s\n", email, rawKey)
	return nil
}

func newRouter(st store.Store, ca cache.Cache, acct *accounts.Service, cfg *config.Config) http.Handler {
	bids := handler.NewBids(bidding.NewService(st, ca, cfg.Stats.TTL))
	js := handler.NewJobs(jobs.NewService(st))
	accts := handler.NewAccounts(acct)

	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(acct),
		RateLimit: mw.NewRateLimit(ca, cfg.RateLimit.RequestsPerMinute),

		HealthHandler: handler.Health(st, ca),

		ListJobs:  js.List,
		GetJob:    js.Get,
		CreateJob: js.Create,
		MyJobs:    js.Mine,
		UpdateJob: js.Update,
		CancelJob: js.Cancel,

		PlaceBid:    bids.Place,
		ListJobBids: bids.ListForJob,
		MyBids:      bids.Mine,
		GetBid:      bids.Get,
		AcceptBid:   bids.Accept,
		RejectBid:   bids.Reject,
		WithdrawBid: bids.Withdraw,

		GetProfile: accts.GetProfile,
		PutProfile: accts.PutProfile,
		CreateUser: accts.CreateUser,
	})
}
