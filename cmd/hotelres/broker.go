package main

import (
	"log/slog"

	"hotelres/internal/app/handlers/notifications"
	"hotelres/internal/infra/broker/direct"
	"hotelres/internal/infra/broker/kafka"
	"hotelres/internal/infra/broker/rabbitmq"
	"hotelres/internal/infra/config"
	"hotelres/internal/infra/notify"
	infraoutbox "hotelres/internal/infra/outbox"
)

type producer interface {
	infraoutbox.Producer
	Close() error
}

type directProducer struct{ *direct.Publisher }

func (directProducer) Close() error { return nil }

// openProducer picks the relay target. Without a broker, events go straight to
// the in-process notification handler.
func openProducer(cfg config.Config, inbox notifications.Inbox, logger *slog.Logger) (producer, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		p, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BrokerRabbitMQ:
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		pub := &direct.Publisher{}
		pub.Subscribe(infraoutbox.TopicFor(cfg.KafkaTopicPrefix, "reservation"), &notifications.Handler{
			Notifier: notify.New(cfg.SMTP, logger),
			Inbox:    inbox,
			Logger:   logger,
		})
		return directProducer{pub}, nil
	}
}
