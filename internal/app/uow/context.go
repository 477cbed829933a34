package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

// ContextWithUnitOfWork stores the unit in ctx, letting the unit inject driver state first.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext retrieves a unit of work from context if present.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

// Run executes fn inside the unit already in ctx, or inside a fresh unit that is
// committed when fn succeeds and rolled back otherwise.
func Run(ctx context.Context, factory UoWFactory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return err
	}
	execCtx := ContextWithUnitOfWork(ctx, unit)
	if err := fn(execCtx, unit); err != nil {
		_ = unit.Rollback(execCtx)
		return err
	}
	if opts.ReadOnly {
		_ = unit.Rollback(execCtx)
		return nil
	}
	return unit.Commit(execCtx)
}
