package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// TransactionConfig controls how commands are wrapped in units of work.
type TransactionConfig struct {
	Options     TxOptionsProvider
	MaxAttempts int
	Backoff     time.Duration
	Logger      *slog.Logger
	// Exhausted, when set, replaces the uow.ErrConcurrentUpdate returned once
	// MaxAttempts have all lost.
	Exhausted func(ctx context.Context, cmd commands.Command, err error) error
}

// Transaction runs each command inside a fresh unit of work and commits it on
// success. Attempts that lose an optimistic race (uow.ErrConcurrentUpdate, from
// the handler or from Commit) are rolled back and replayed from scratch.
func Transaction(factory uow.UoWFactory, cfg TransactionConfig) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		once := func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if cfg.Options != nil {
				opts = cfg.Options(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := uow.ContextWithUnitOfWork(ctx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		}
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			for attempt := 1; ; attempt++ {
				res, err := once(ctx, cmd)
				if err == nil {
					return res, nil
				}
				if !errors.Is(err, uow.ErrConcurrentUpdate) {
					return nil, err
				}
				if attempt >= maxAttempts {
					if cfg.Logger != nil {
						cfg.Logger.Warn("command kept losing concurrent updates", "command", cmd.Key(), "attempts", attempt)
					}
					if cfg.Exhausted != nil {
						return nil, cfg.Exhausted(ctx, cmd, err)
					}
					return nil, err
				}
				if cfg.Logger != nil {
					cfg.Logger.Debug("retrying command after concurrent update", "command", cmd.Key(), "attempt", attempt)
				}
				if cfg.Backoff > 0 {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(cfg.Backoff * time.Duration(attempt)):
					}
				}
			}
		})
	}
}
