package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hotelres/internal/app/handlers/notifications"
	"hotelres/internal/app/middleware"
	appoutbox "hotelres/internal/app/outbox"
	"hotelres/internal/app/uow"
	"hotelres/internal/infra/config"
	mongostore "hotelres/internal/infra/db/mongo"
	"hotelres/internal/infra/db/postgres"
	"hotelres/internal/infra/obs"
	infraoutbox "hotelres/internal/infra/outbox"
	"hotelres/internal/infra/storage/memory"
)

// relayOutbox is an outbox the application writes to and the relay drains.
type relayOutbox interface {
	appoutbox.Outbox
	infraoutbox.Store
	Wake() <-chan struct{}
}

type storage struct {
	UoW          uow.UoWFactory
	Outbox       relayOutbox
	Idempotency  middleware.IdempotencyStore
	Inbox        notifications.Inbox
	Checks       map[string]obs.Check
	Housekeeping []func(ctx context.Context) error
	Close        func(ctx context.Context) error
}

const inboxConsumer = "hotelres-notifier"

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		store := memory.NewStore()
		return &storage{
			UoW:         store,
			Outbox:      store.Outbox(),
			Idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			Inbox:       memory.NewInbox(),
			Checks:      map[string]obs.Check{},
			Close:       func(context.Context) error { return nil },
		}, nil
	}
}

func openMongo(ctx context.Context, cfg config.Config) (*storage, error) {
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	fail := func(err error) (*storage, error) {
		_ = client.Close(context.Background())
		return nil, err
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		return fail(fmt.Errorf("mongo indexes: %w", err))
	}
	box, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		return fail(fmt.Errorf("mongo outbox: %w", err))
	}
	idem, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return fail(fmt.Errorf("mongo idempotency: %w", err))
	}
	inbox, err := mongostore.NewInbox(ctx, client.DB, inboxConsumer)
	if err != nil {
		return fail(fmt.Errorf("mongo inbox: %w", err))
	}
	return &storage{
		UoW:         mongostore.Factory{DB: client.DB},
		Outbox:      box,
		Idempotency: idem,
		Inbox:       inbox,
		Checks:      map[string]obs.Check{"mongo": client.Ping},
		Close:       client.Close,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	if err := postgres.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	idem := postgres.NewIdempotencyStore(pool, cfg.IdempotencyTTL)
	return &storage{
		UoW:         postgres.Factory{Pool: pool},
		Outbox:      postgres.NewOutbox(pool),
		Idempotency: idem,
		Inbox:       postgres.NewInbox(pool, inboxConsumer),
		Checks:      map[string]obs.Check{"postgres": pool.Ping},
		Housekeeping: []func(ctx context.Context) error{
			func(ctx context.Context) error {
				n, err := idem.Purge(ctx)
				if err == nil && n > 0 {
					logger.Info("expired idempotency keys purged", "count", n)
				}
				return err
			},
		},
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func shutdownTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
