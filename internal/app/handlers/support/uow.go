package support

import (
	"context"
	"time"

	"hotelres/internal/app/outbox"
	"hotelres/internal/app/uow"
	"hotelres/internal/domain/shared/events"
)

// BeginReadOnlyUnit reuses the unit in ctx or opens a read-only one. cleanup is
// nil when the unit came from ctx.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.ContextWithUnitOfWork(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// InUnit runs fn in the unit carried by ctx, or in a fresh writable unit that is
// committed when fn succeeds.
func InUnit(ctx context.Context, factory uow.UoWFactory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	return uow.Run(ctx, factory, uow.TxOptions{}, fn)
}

// Record writes evs to box with encoder falling back to JSON.
func Record(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, evs []events.DomainEvent) error {
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	return outbox.RecordDomainEvents(ctx, box, encoder, evs)
}

// Now returns clock() in UTC, or the wall clock when clock is nil.
func Now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
