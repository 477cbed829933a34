package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.StorageDriver != DriverMemory || cfg.Broker != BrokerNone || cfg.HTTPAddr != ":8080" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.TxMaxAttempts != 3 || cfg.CacheTTL != 5*time.Second || cfg.ReservationInitialState != "CONFIRMED" {
		t.Fatalf("cfg = %+v", cfg)
	}
	want := []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}
	if len(cfg.RetryBackoff) != len(want) {
		t.Fatalf("backoff = %v", cfg.RetryBackoff)
	}
	for i := range want {
		if cfg.RetryBackoff[i] != want[i] {
			t.Fatalf("backoff = %v", cfg.RetryBackoff)
		}
	}
	if !cfg.Development() {
		t.Fatal("default env should be development")
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://hotel@localhost/hotel")
	t.Setenv("BROKER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PROMO_REFUND_ON_CANCEL", "true")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("APP_ENV", "production")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.StorageDriver != DriverPostgres || len(cfg.KafkaBrokers) != 2 || !cfg.PromoRefundOnCancel {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SMTP.Host != "smtp.example.com" || cfg.SMTP.Port != 2525 {
		t.Fatalf("smtp = %+v", cfg.SMTP)
	}
	if cfg.Development() {
		t.Fatal("production flagged as development")
	}
}

func TestParseRejectsIncompleteDrivers(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"mongo without uri", map[string]string{"STORAGE_DRIVER": "mongo"}, "MONGO_URI"},
		{"postgres without url", map[string]string{"STORAGE_DRIVER": "postgres"}, "DATABASE_URL"},
		{"kafka without brokers", map[string]string{"BROKER": "kafka"}, "KAFKA_BROKERS"},
		{"rabbit without url", map[string]string{"BROKER": "rabbitmq"}, "RABBITMQ_URL"},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite"}, "STORAGE_DRIVER"},
		{"zero attempts", map[string]string{"TX_MAX_ATTEMPTS": "0"}, "TX_MAX_ATTEMPTS"},
		{"bad duration", map[string]string{"CACHE_TTL": "soon"}, "CACHE_TTL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}
