package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hotelres/internal/app/uow"
	domainavailability "hotelres/internal/domain/availability"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// Factory opens one pgx transaction per unit of work.
type Factory struct {
	Pool *pgxpool.Pool
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx, locking: !opts.ReadOnly}, nil
}

// Unit wraps one transaction. Writable units lock the room row before reading
// its calendar and the promotion row before reading it, so writers of one room
// or one code queue on the row lock instead of racing the version check.
type Unit struct {
	tx      pgx.Tx
	locking bool
}

func (u *Unit) Rooms() domainrooms.Repository { return roomRepository{tx: u.tx} }

func (u *Unit) Calendars() domainavailability.Repository {
	return calendarRepository{tx: u.tx, lock: u.locking}
}

func (u *Unit) Reservations() domainreservation.Repository { return reservationRepository{tx: u.tx} }

func (u *Unit) Promotions() domainpromotion.Repository {
	return promotionRepository{tx: u.tx, lock: u.locking}
}

func (u *Unit) Usages() domainpromotion.UsageRepository { return usageRepository{tx: u.tx} }

func (u *Unit) Commit(ctx context.Context) error {
	return translate(u.tx.Commit(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// Constraint names from the migrations.
const (
	constraintNoOverlap    = "reservations_no_overlap"
	constraintReference    = "reservations_reference_key"
	constraintUsageCap     = "promotions_usage_cap"
	constraintUsagePerResv = "promotion_usages_per_reservation"
	constraintUsageOnce    = "promotion_usages_once_per_customer"
)

// translate maps Postgres constraint and serialization failures onto domain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23P01":
		if pgErr.ConstraintName == constraintNoOverlap {
			return fmt.Errorf("%w: %w", domainreservation.ErrRoomUnavailable, domainavailability.ErrOverlappingRange)
		}
	case "23505":
		switch pgErr.ConstraintName {
		case constraintReference:
			return domainreservation.ErrDuplicateReference
		case constraintUsagePerResv:
			return domainreservation.ErrPromoAlreadyApplied
		case constraintUsageOnce:
			return domainpromotion.Invalid(domainpromotion.ReasonAlreadyUsedByCustomer)
		}
	case "23514":
		if pgErr.ConstraintName == constraintUsageCap {
			return domainpromotion.Invalid(domainpromotion.ReasonUsageExhausted)
		}
	case "40001", "40P01":
		return errors.Join(uow.ErrConcurrentUpdate, err)
	}
	return err
}

// txFromContext returns the transaction of the postgres unit carried by ctx.
func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, false
	}
	pu, ok := unit.(*Unit)
	if !ok {
		return nil, false
	}
	return pu.tx, true
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
