package reservations

import (
	"context"
	"strings"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/dto"
	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/uow"
	domainreservation "hotelres/internal/domain/reservation"
)

const (
	cancelReservationKey     = "reservations.cancel"
	transitionReservationKey = "reservations.transition"
	confirmPaymentKey        = "reservations.confirm_payment"
)

type CancelReservationCommand struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
}

func (c CancelReservationCommand) Key() string { return cancelReservationKey }

type CancelReservationHandler struct {
	*Lifecycle
}

func (h *CancelReservationHandler) Handle(ctx context.Context, cmd CancelReservationCommand) (*dto.Reservation, error) {
	return h.apply(ctx, cmd.ReservationID, domainreservation.StateCancelled, cmd.Reason)
}

type TransitionReservationCommand struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	Target        string `json:"target" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
}

func (c TransitionReservationCommand) Key() string { return transitionReservationKey }

type TransitionReservationHandler struct {
	*Lifecycle
}

func (h *TransitionReservationHandler) Handle(ctx context.Context, cmd TransitionReservationCommand) (*dto.Reservation, error) {
	target := domainreservation.State(strings.ToUpper(strings.TrimSpace(cmd.Target)))
	if !target.Valid() {
		return nil, domainreservation.ErrInvalidStateTransition
	}
	return h.apply(ctx, cmd.ReservationID, target, cmd.Reason)
}

func (l *Lifecycle) apply(ctx context.Context, id string, target domainreservation.State, reason string) (*dto.Reservation, error) {
	var out dto.Reservation
	err := handlersupport.InUnit(ctx, l.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := unit.Reservations().ByID(ctx, domainreservation.ReservationID(id))
		if err != nil {
			return err
		}
		evs, err := l.transition(ctx, unit, res, target, reason, l.now())
		if err != nil {
			return err
		}
		if err := l.record(ctx, evs); err != nil {
			return err
		}
		out = dto.MapReservation(res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmPaymentCommand records an external payment confirmation. A reservation
// still waiting for confirmation moves to CONFIRMED.
type ConfirmPaymentCommand struct {
	ReservationID string `json:"reservation_id" validate:"required"`
}

func (c ConfirmPaymentCommand) Key() string { return confirmPaymentKey }

type ConfirmPaymentHandler struct {
	*Lifecycle
}

func (h *ConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*dto.Reservation, error) {
	var out dto.Reservation
	err := handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := unit.Reservations().ByID(ctx, domainreservation.ReservationID(cmd.ReservationID))
		if err != nil {
			return err
		}
		now := h.now()
		switch {
		case res.State == domainreservation.StatePending || res.State == domainreservation.StatePendingPayment:
			res.MarkPaid(now)
			evs, err := h.transition(ctx, unit, res, domainreservation.StateConfirmed, "", now)
			if err != nil {
				return err
			}
			if err := h.record(ctx, evs); err != nil {
				return err
			}
		case res.State.Blocking():
			res.MarkPaid(now)
			if err := unit.Reservations().Save(ctx, res); err != nil {
				return err
			}
		default:
			return domainreservation.ErrInvalidStateTransition
		}
		out = dto.MapReservation(res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

var (
	_ commands.Handler[CancelReservationCommand, *dto.Reservation]     = (*CancelReservationHandler)(nil)
	_ commands.Handler[TransitionReservationCommand, *dto.Reservation] = (*TransitionReservationHandler)(nil)
	_ commands.Handler[ConfirmPaymentCommand, *dto.Reservation]        = (*ConfirmPaymentHandler)(nil)
)
