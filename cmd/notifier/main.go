package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hotelres/internal/app/handlers/notifications"
	"hotelres/internal/infra/broker/kafka"
	"hotelres/internal/infra/broker/rabbitmq"
	"hotelres/internal/infra/config"
	mongostore "hotelres/internal/infra/db/mongo"
	"hotelres/internal/infra/db/postgres"
	"hotelres/internal/infra/notify"
	"hotelres/internal/infra/obs"
	infraoutbox "hotelres/internal/infra/outbox"
	"hotelres/internal/infra/storage/memory"
)

const consumerName = "hotelres-notifier"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod").Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("notifier stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("notifier stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	inbox, closeInbox, err := openInbox(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeInbox()

	handler := &notifications.Handler{
		Notifier: notify.New(cfg.SMTP, logger),
		Inbox:    inbox,
		Logger:   logger,
	}
	topic := infraoutbox.TopicFor(cfg.KafkaTopicPrefix, "reservation")

	switch cfg.Broker {
	case config.BrokerKafka:
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, handler, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer func() { _ = consumer.Close() }()
		logger.Info("notifier consuming", "broker", cfg.Broker, "topic", topic, "group", cfg.KafkaGroupID)
		return consumer.Run(ctx, []string{topic})
	case config.BrokerRabbitMQ:
		consumer := &rabbitmq.Consumer{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.RabbitMQExchange,
			Queue:    consumerName,
			Bindings: []string{topic},
			Handler:  handler,
			Logger:   logger,
		}
		logger.Info("notifier consuming", "broker", cfg.Broker, "queue", consumerName, "binding", topic)
		return consumer.Run(ctx)
	default:
		return fmt.Errorf("notifier needs BROKER=kafka or BROKER=rabbitmq, got %q", cfg.Broker)
	}
}

// openInbox stores handled event ids next to the reservation data so redelivered
// events are not mailed twice.
func openInbox(ctx context.Context, cfg config.Config) (notifications.Inbox, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Close(context.Background()) }
		inbox, err := mongostore.NewInbox(ctx, client.DB, consumerName)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return inbox, closeFn, nil
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewInbox(pool, consumerName), pool.Close, nil
	default:
		return memory.NewInbox(), func() {}, nil
	}
}
