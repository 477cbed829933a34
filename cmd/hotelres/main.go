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

	"hotelres/internal/app/bootstrap"
	"hotelres/internal/app/middleware"
	"hotelres/internal/app/policies"
	rediscache "hotelres/internal/infra/cache/redis"
	"hotelres/internal/infra/config"
	ginserver "hotelres/internal/infra/http/gin"
	"hotelres/internal/infra/obs"
	infraoutbox "hotelres/internal/infra/outbox"
	"hotelres/internal/infra/schedule"
	"hotelres/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod").Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("hotelres stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("hotelres stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := shutdownTimeout()
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
	}()

	if err := bootstrap.LoadFixturesFile(ctx, store.UoW, cfg.FixturesPath, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
	}

	initial, err := policies.ParseInitialState(cfg.ReservationInitialState)
	if err != nil {
		return err
	}
	metrics := obs.NewMetrics("hotelres", nil)
	cache, cacheCheck, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()
	if cacheCheck != nil {
		store.Checks["redis"] = cacheCheck
	}

	app := bootstrap.New(bootstrap.Deps{
		UoW:         store.UoW,
		Outbox:      store.Outbox,
		Idempotency: store.Idempotency,
		Policy: policies.ReservationPolicy{
			InitialState:         initial,
			RestorePromoOnCancel: cfg.PromoRefundOnCancel,
		},
		Cache:         cache,
		CacheTTL:      cfg.CacheTTL,
		Metrics:       metrics,
		TxMaxAttempts: cfg.TxMaxAttempts,
		TxBackoff:     10 * time.Millisecond,
		Clock:         func() time.Time { return time.Now().UTC() },
		Logger:        logger,
	})

	prod, err := openProducer(cfg, store.Inbox, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := prod.Close(); err != nil {
			logger.Warn("producer close failed", "error", err)
		}
	}()
	worker := &infraoutbox.Worker{
		Store:       store.Outbox,
		Producer:    prod,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "hotelres",
		Backoff:     cfg.RetryBackoff,
		Wake:        store.Outbox.Wake(),
		Logger:      logger,
	}

	sweeper := &schedule.Sweeper{
		Bus:          app.Commands,
		Interval:     cfg.SweepInterval,
		Logger:       logger,
		Housekeeping: store.Housekeeping,
	}
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = sweeper.Stop() }()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: metrics}, obs.HealthHandlers{
		Checks: store.Checks,
	}, ginserver.Handlers{
		Reservations: ginserver.ReservationHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Availability: ginserver.AvailabilityHandler{Queries: app.Queries, Logger: logger},
		Promotions:   ginserver.PromotionHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Metrics:      metrics.Handler(),
	})

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := shutdownTimeout()
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "broker", cfg.Broker)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-workerDone
	return nil
}

// openCache prefers Redis and falls back to a process-local cache when Redis is
// not configured or not reachable.
func openCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (middleware.Cache, obs.Check, func()) {
	if cfg.RedisAddr == "" {
		return memory.NewCache(), nil, func() {}
	}
	c, err := rediscache.New(ctx, rediscache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, using in-process cache", "addr", cfg.RedisAddr, "error", err)
		return memory.NewCache(), nil, func() {}
	}
	return c, c.Ping, func() { _ = c.Close() }
}
