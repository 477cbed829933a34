package middleware

import (
	"context"
	"log/slog"
	"time"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/queries"
)

// Recorder receives one observation per dispatched message.
type Recorder interface {
	Observe(kind, key string, err error, elapsed time.Duration)
}

// Logging logs each command with its outcome and latency.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		return nil
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			if err != nil {
				logger.Warn("command failed", "command", cmd.Key(), "duration", time.Since(start), "error", err)
				return nil, err
			}
			logger.Debug("command handled", "command", cmd.Key(), "duration", time.Since(start))
			return res, nil
		})
	}
}

// Metrics reports command outcomes to rec.
func Metrics(rec Recorder) CommandMiddleware {
	if rec == nil {
		return nil
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			rec.Observe("command", cmd.Key(), err, time.Since(start))
			return res, err
		})
	}
}

// QueryMetrics reports query outcomes to rec.
func QueryMetrics(rec Recorder) QueryMiddleware {
	if rec == nil {
		return nil
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, q)
			rec.Observe("query", q.Key(), err, time.Since(start))
			return res, err
		})
	}
}
