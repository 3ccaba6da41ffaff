package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dapur-erp/dapur-erp/cmd/dapur/cli"
	"github.com/dapur-erp/dapur-erp/db/migrations"
	"github.com/dapur-erp/dapur-erp/internal/app"
	"github.com/dapur-erp/dapur-erp/internal/notification"
	"github.com/dapur-erp/dapur-erp/internal/observability"
	"github.com/dapur-erp/dapur-erp/internal/platform/cache"
	"github.com/dapur-erp/dapur-erp/internal/platform/db"
	"github.com/dapur-erp/dapur-erp/internal/sequence"
	"github.com/dapur-erp/dapur-erp/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.Actions{Serve: serve, Migrate: migrate, ResyncSequences: resyncSequences}, cli.DefaultDialer)
	if err := root.ExecuteContext(ctx); err != nil {
		var exit cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		slog.Default().Error("dapur", slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context) (int, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return 0, err
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLifetime})
	if err != nil {
		return 0, err
	}
	defer pool.Close()
	return db.Migrate(ctx, pool, migrations.FS, logger)
}

func resyncSequences(ctx context.Context) (int, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return 0, err
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLifetime})
	if err != nil {
		return 0, err
	}
	defer pool.Close()
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	n, err := sequence.Resync(ctx, pool, sequence.NewRedisAllocator(redisClient, cfg.SequencePrefix))
	if err != nil {
		return n, err
	}
	logger.Info("sequence counters resynced", slog.Int("counters", n))
	return n, nil
}

func serve(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var (
		stores     app.Stores
		deliverer  notification.Deliverer
		jobHandler *jobs.Handler
		readiness  = map[string]app.ReadinessCheck{}
	)
	if app.InTestMode() {
		logger.Info("test mode detected, using in-memory stores")
		stores = app.MemoryStores()
		jobHandler = jobs.NewHandler(nil, logger)
	} else {
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLifetime})
		if err != nil {
			return err
		}
		defer pool.Close()

		redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()

		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()

		stores = app.PostgresStores(pool, redisClient, cfg)
		deliverer = jobClient
		jobHandler = jobs.NewHandler(inspector, logger)
		readiness["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	services, err := app.NewServices(app.ServiceDeps{
		Config:    cfg,
		Stores:    stores,
		Deliverer: deliverer,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      app.NewAPIRouter(cfg, logger, services, metrics, jobHandler, readiness),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
