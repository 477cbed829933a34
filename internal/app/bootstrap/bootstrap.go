package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/dto"
	availabilityapp "hotelres/internal/app/handlers/availability"
	promotionapp "hotelres/internal/app/handlers/promotions"
	reservationapp "hotelres/internal/app/handlers/reservations"
	"hotelres/internal/app/middleware"
	"hotelres/internal/app/outbox"
	"hotelres/internal/app/policies"
	"hotelres/internal/app/queries"
	"hotelres/internal/app/uow"
	domainpricing "hotelres/internal/domain/pricing"
)

// Deps are the ports the application layer needs. Optional ones may be nil.
type Deps struct {
	UoW         uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Pricing     policies.PricingPort
	Policy      policies.ReservationPolicy

	Cache    middleware.Cache
	CacheTTL time.Duration
	Metrics  middleware.Recorder

	TxMaxAttempts int
	TxBackoff     time.Duration
	Clock         func() time.Time
	Logger        *slog.Logger
}

// Application exposes the fully wired buses.
type Application struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// New registers every handler and wraps both buses in their middleware. Commands
// run validation, idempotency, outbox flush and the transaction, outermost first,
// so the flush only happens after commit.
func New(d Deps) Application {
	if d.Pricing == nil {
		d.Pricing = domainpricing.FixedRate{}
	}
	if d.Policy.InitialState == "" {
		d.Policy = policies.DefaultReservationPolicy()
	}
	encoder := outbox.JSONEventEncoder{}
	lifecycle := &reservationapp.Lifecycle{
		UoWFactory: d.UoW,
		Policy:     d.Policy,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Clock:      d.Clock,
		Logger:     d.Logger,
	}

	commandBus := commands.NewInMemoryBus()
	create := &reservationapp.CreateReservationHandler{
		UoWFactory: d.UoW,
		Pricing:    d.Pricing,
		Policy:     d.Policy,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Clock:      d.Clock,
		Logger:     d.Logger,
	}
	commands.RegisterHandler(commandBus, create)
	commands.RegisterHandler(commandBus, &reservationapp.CancelReservationHandler{Lifecycle: lifecycle})
	commands.RegisterHandler(commandBus, &reservationapp.TransitionReservationHandler{Lifecycle: lifecycle})
	commands.RegisterHandler(commandBus, &reservationapp.ConfirmPaymentHandler{Lifecycle: lifecycle})
	commands.RegisterHandler(commandBus, &reservationapp.ApplyPromoCodeHandler{Lifecycle: lifecycle})
	commands.RegisterHandler(commandBus, &reservationapp.UpdateNotesHandler{Lifecycle: lifecycle})
	commands.RegisterHandler(commandBus, &reservationapp.SweepReservationsHandler{Lifecycle: lifecycle})
	commands.RegisterHandler(commandBus, &promotionapp.SetPromotionActiveHandler{
		UoWFactory: d.UoW,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Clock:      d.Clock,
	})

	queryBus := queries.NewInMemoryBus()
	reservationQueries := &reservationapp.QueryHandler{UoWFactory: d.UoW, Clock: d.Clock}
	queries.RegisterHandler(queryBus, queries.HandlerFunc[reservationapp.GetReservationQuery, *dto.Reservation](reservationQueries.Get))
	queries.RegisterHandler(queryBus, queries.HandlerFunc[reservationapp.GetReservationByReferenceQuery, *dto.Reservation](reservationQueries.ByReference))
	queries.RegisterHandler(queryBus, queries.HandlerFunc[reservationapp.ListReservationsQuery, *dto.ReservationCollection](reservationQueries.List))
	queries.RegisterHandler(queryBus, queries.HandlerFunc[reservationapp.ArrivalsQuery, *dto.ReservationCollection](reservationQueries.Arrivals))
	queries.RegisterHandler(queryBus, queries.HandlerFunc[reservationapp.DeparturesQuery, *dto.ReservationCollection](reservationQueries.Departures))
	queries.RegisterHandler(queryBus, &availabilityapp.CheckAvailabilityHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, &availabilityapp.GetCalendarHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, &promotionapp.ValidatePromoHandler{UoWFactory: d.UoW, Clock: d.Clock})
	queries.RegisterHandler(queryBus, &promotionapp.ListActivePromotionsHandler{UoWFactory: d.UoW, Clock: d.Clock})
	queries.RegisterHandler(queryBus, &promotionapp.PromotionStatsHandler{UoWFactory: d.UoW})

	validator := middleware.NewStructValidator()
	var idempotency middleware.CommandMiddleware
	if d.Idempotency != nil {
		idempotency = middleware.Idempotency(d.Idempotency, nil)
	}
	var flush middleware.CommandMiddleware
	if d.Outbox != nil {
		flush = middleware.OutboxFlush(d.Outbox, d.Logger)
	}
	commandsWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(d.Logger),
		middleware.Metrics(d.Metrics),
		middleware.Validation(validator),
		idempotency,
		flush,
		middleware.Transaction(d.UoW, middleware.TransactionConfig{
			MaxAttempts: d.TxMaxAttempts,
			Backoff:     d.TxBackoff,
			Logger:      d.Logger,
			Exhausted: func(ctx context.Context, cmd commands.Command, err error) error {
				if c, ok := cmd.(reservationapp.CreateReservationCommand); ok {
					return create.Contended(ctx, c, err)
				}
				return err
			},
		}),
	)
	queriesWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryMetrics(d.Metrics),
		middleware.QueryValidation(validator),
		middleware.QueryCache(d.Cache, d.CacheTTL, nil, d.Logger),
	)
	return Application{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware}
}
