package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"hotelres/internal/app/uow"
	domainavailability "hotelres/internal/domain/availability"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a session with a snapshot transaction. Repositories pick the
// session up from the context injected by the unit.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{db: f.DB, session: session, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	readOnly bool
}

func (u *Unit) Rooms() domainrooms.Repository {
	return roomRepository{col: u.db.Collection(colRooms)}
}

func (u *Unit) Calendars() domainavailability.Repository {
	return calendarRepository{col: u.db.Collection(colCalendars)}
}

func (u *Unit) Reservations() domainreservation.Repository {
	return reservationRepository{col: u.db.Collection(colReservations)}
}

func (u *Unit) Promotions() domainpromotion.Repository {
	return promotionRepository{col: u.db.Collection(colPromotions)}
}

func (u *Unit) Usages() domainpromotion.UsageRepository {
	return usageRepository{col: u.db.Collection(colUsages)}
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return u.session.AbortTransaction(ctx)
	}
	return translate(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

// translate maps write conflicts and aborted transactions onto the retryable
// uow error.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel("TransientTransactionError") || se.HasErrorCode(112) {
			return errors.Join(uow.ErrConcurrentUpdate, err)
		}
	}
	return err
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.UnitOfWork      = (*Unit)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
