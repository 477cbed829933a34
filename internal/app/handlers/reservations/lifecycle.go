package reservations

import (
	"context"
	"log/slog"
	"time"

	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/outbox"
	"hotelres/internal/app/policies"
	"hotelres/internal/app/uow"
	domainavailability "hotelres/internal/domain/availability"
	domainreservation "hotelres/internal/domain/reservation"
	"hotelres/internal/domain/shared/events"
)

// Lifecycle holds what every state-changing reservation command needs.
type Lifecycle struct {
	UoWFactory uow.UoWFactory
	Policy     policies.ReservationPolicy
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (l *Lifecycle) now() time.Time {
	return handlersupport.Now(l.Clock)
}

// transition moves res to target inside unit, saving the calendar when the
// blocking set changes and restoring promotion usage on cancel when the policy
// asks for it. It returns the events to record.
func (l *Lifecycle) transition(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation, target domainreservation.State, reason string, now time.Time) ([]events.DomainEvent, error) {
	if !res.State.CanTransitionTo(target) {
		return nil, domainreservation.ErrInvalidStateTransition
	}
	var calendar *domainavailability.Calendar
	if res.State.Blocking() != target.Blocking() {
		var err error
		calendar, err = unit.Calendars().Calendar(ctx, res.RoomID)
		if err != nil {
			return nil, err
		}
	}
	if err := res.TransitionTo(target, calendar, reason, now); err != nil {
		return nil, err
	}
	if err := unit.Reservations().Save(ctx, res); err != nil {
		return nil, err
	}
	sources := []interface{ Drain() []events.DomainEvent }{res}
	if calendar != nil {
		if err := unit.Calendars().Save(ctx, calendar); err != nil {
			return nil, err
		}
		sources = append(sources, calendar)
	}
	if target == domainreservation.StateCancelled && l.Policy.RestorePromoOnCancel && res.PromoCode != "" {
		promo, err := unit.Promotions().ByCode(ctx, res.PromoCode)
		if err != nil {
			return nil, err
		}
		promo.Restore(string(res.ID), now)
		if err := unit.Promotions().Save(ctx, promo); err != nil {
			return nil, err
		}
		sources = append(sources, promo)
	}
	if l.Logger != nil {
		l.Logger.Info("reservation transitioned",
			"reservation_id", res.ID,
			"state", target,
		)
	}
	return events.Collect(sources...), nil
}

func (l *Lifecycle) record(ctx context.Context, evs []events.DomainEvent) error {
	return handlersupport.Record(ctx, l.Outbox, l.Encoder, evs)
}
