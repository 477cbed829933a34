package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	BrokerNone     = "none"
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDB       string `env:"MONGO_DB" envDefault:"hotel"`
	DatabaseURL   string `env:"DATABASE_URL"`

	Broker           string   `env:"BROKER" envDefault:"none"`
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicPrefix string   `env:"KAFKA_TOPIC_PREFIX"`
	KafkaGroupID     string   `env:"KAFKA_GROUP_ID" envDefault:"hotel-notifier"`
	RabbitMQURL      string   `env:"RABBITMQ_URL"`
	RabbitMQExchange string   `env:"RABBITMQ_EXCHANGE" envDefault:"hotel.events"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5s"`

	IdempotencyTTL     time.Duration   `env:"IDEMP_TTL" envDefault:"168h"`
	OutboxPollInterval time.Duration   `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`
	RetryBackoff       []time.Duration `env:"RETRY_BACKOFF" envSeparator:"," envDefault:"1s,5s,30s"`
	TxMaxAttempts      int             `env:"TX_MAX_ATTEMPTS" envDefault:"3"`

	ReservationInitialState string `env:"RESERVATION_INITIAL_STATE" envDefault:"CONFIRMED"`
	PromoRefundOnCancel     bool   `env:"PROMO_REFUND_ON_CANCEL" envDefault:"false"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	FixturesPath  string        `env:"FIXTURES_PATH" envDefault:"data/fixtures.json"`
}

// SMTPConfig is optional; an empty host logs notifications instead of mailing them.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"reservations@hotel.local"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.Broker = strings.ToLower(strings.TrimSpace(cfg.Broker))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for STORAGE_DRIVER=%s", c.StorageDriver)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORAGE_DRIVER=%s", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.Broker {
	case BrokerNone:
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for BROKER=%s", c.Broker)
		}
	case BrokerRabbitMQ:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for BROKER=%s", c.Broker)
		}
	default:
		return fmt.Errorf("unknown BROKER %q", c.Broker)
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1, got %d", c.TxMaxAttempts)
	}
	return nil
}

// Development reports whether the app runs in a local environment.
func (c Config) Development() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "local", "development":
		return true
	}
	return false
}
