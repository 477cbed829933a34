package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Inbox records handled event ids per consumer in app_inbox.
type Inbox struct {
	pool     *pgxpool.Pool
	consumer string
}

func NewInbox(pool *pgxpool.Pool, consumer string) *Inbox {
	return &Inbox{pool: pool, consumer: consumer}
}

// Seen marks eventID handled and reports whether it already was.
func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	tag, err := i.pool.Exec(ctx,
		`INSERT INTO app_inbox (event_id, consumer) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		eventID, i.consumer)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 0, nil
}
