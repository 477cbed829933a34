package uow

import (
	"context"
	"errors"

	domainavailability "hotelres/internal/domain/availability"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
)

// ErrConcurrentUpdate is returned by stores when a write lost an optimistic race.
// The transaction middleware retries the whole command when it sees it.
var ErrConcurrentUpdate = errors.New("uow: concurrent update detected")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Rooms() domainrooms.Repository
	Calendars() domainavailability.Repository
	Reservations() domainreservation.Repository
	Promotions() domainpromotion.Repository
	Usages() domainpromotion.UsageRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state (sessions, tx handles) in context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
