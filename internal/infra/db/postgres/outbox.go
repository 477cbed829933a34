package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "hotelres/internal/app/outbox"
	infraoutbox "hotelres/internal/infra/outbox"
)

// claimTimeout returns a claimed record to the pool when its worker died mid-publish.
const claimTimeout = time.Minute

// Outbox stores records in app_outbox. Add writes through the transaction of
// the unit carried by ctx, so records commit or roll back with it.
type Outbox struct {
	pool *pgxpool.Pool
	wake chan struct{}
}

func NewOutbox(pool *pgxpool.Pool) *Outbox {
	return &Outbox{pool: pool, wake: make(chan struct{}, 1)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	const insert = `
		INSERT INTO app_outbox (id, name, payload, occurred_at, aggregate, headers)
		VALUES ($1, $2, $3, $4, $5, $6)`
	args := []any{record.ID, record.Name, record.Payload, record.OccurredAt, record.Aggregate, headers}
	if tx, ok := txFromContext(ctx); ok {
		_, err = tx.Exec(ctx, insert, args...)
	} else {
		_, err = o.pool.Exec(ctx, insert, args...)
	}
	return translate(err)
}

// Flush wakes the relay worker.
func (o *Outbox) Flush(context.Context) error {
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

func (o *Outbox) Wake() <-chan struct{} {
	return o.wake
}

// Claim locks the oldest due record with SKIP LOCKED so several relays can
// share the table.
func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	now := time.Now().UTC()
	row := o.pool.QueryRow(ctx, `
		UPDATE app_outbox SET state = 'CLAIMED', claimed_by = $1, claimed_at = $2
		WHERE id = (
			SELECT id FROM app_outbox
			WHERE (state IN ('NEW', 'FAILED') AND next_attempt_at <= $2)
			   OR (state = 'CLAIMED' AND claimed_at <= $3)
			ORDER BY occurred_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, attempts`,
		workerID, now, now.Add(-claimTimeout),
	)
	var (
		msg     infraoutbox.Message
		headers []byte
	)
	err := row.Scan(&msg.ID, &msg.Name, &msg.Payload, &msg.OccurredAt, &msg.Aggregate, &headers, &msg.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &msg.Headers); err != nil {
			return nil, err
		}
	}
	msg.OccurredAt = msg.OccurredAt.UTC()
	return &msg, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	_, err := o.pool.Exec(ctx, `UPDATE app_outbox SET state = 'SENT', sent_at = now() WHERE id = $1`, id)
	return err
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := o.pool.Exec(ctx, `
		UPDATE app_outbox SET state = 'FAILED', next_attempt_at = $2, last_error = $3, attempts = attempts + 1
		WHERE id = $1`, id, next, errMsg)
	return err
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
