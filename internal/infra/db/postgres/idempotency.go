package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hotelres/internal/app/middleware"
)

// IdempotencyStore keeps command results in app_idempotency. Records older than
// ttl read as missing.
type IdempotencyStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewIdempotencyStore(pool *pgxpool.Pool, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{pool: pool, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	err := s.pool.QueryRow(ctx, `SELECT payload, occurred_at FROM app_idempotency WHERE key = $1`, key).
		Scan(&rec.Payload, &rec.OccurredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	if s.ttl > 0 && time.Since(rec.OccurredAt) > s.ttl {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_idempotency (key, payload, occurred_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, occurred_at = EXCLUDED.occurred_at`,
		rec.Key, rec.Payload, rec.OccurredAt)
	return err
}

// Purge deletes expired records.
func (s *IdempotencyStore) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM app_idempotency WHERE occurred_at < $1`, time.Now().UTC().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
