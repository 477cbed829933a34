package middleware

import (
	"context"
	"log/slog"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/outbox"
)

// OutboxFlush nudges the outbox after a command has committed. A flush failure is
// logged only: the events are already durable and the relay will pick them up.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil && logger != nil {
				logger.Warn("outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
