package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/dto"
	"hotelres/internal/app/handlers/promotions"
	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/middleware"
	"hotelres/internal/app/outbox"
	"hotelres/internal/app/policies"
	"hotelres/internal/app/uow"
	domainavailability "hotelres/internal/domain/availability"
	domainpricing "hotelres/internal/domain/pricing"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
	domainrange "hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/events"
)

const (
	createReservationKey = "reservations.create"
	referenceAttempts    = 5
)

// reservationNamespace derives stable reservation IDs from idempotency keys.
var reservationNamespace = uuid.MustParse("4f0c5a52-9e2d-4c1b-8a7e-2b6f0f3d9a11")

var ErrReferenceExhausted = errors.New("reservations: could not allocate a unique reference")

type CreateReservationCommand struct {
	RoomID          string    `json:"room_id" validate:"required,max=64"`
	CustomerID      string    `json:"customer_id" validate:"required,max=128"`
	ContactEmail    string    `json:"contact_email" validate:"omitempty,email"`
	CheckIn         time.Time `json:"check_in" validate:"required"`
	CheckOut        time.Time `json:"check_out" validate:"required"`
	Guests          int       `json:"guests"`
	PromoCode       string    `json:"promo_code" validate:"omitempty,max=64"`
	SpecialRequests string    `json:"special_requests" validate:"max=2000"`
	IdempotencyKeyV string    `json:"-"`
}

func (c CreateReservationCommand) Key() string { return createReservationKey }

func (c CreateReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateReservationCommand) ResultPrototype() any { return &dto.Reservation{} }

// CreateReservationHandler books a room: it checks the stay, prices it, applies an
// optional promotion and lands the reservation in the policy's initial state.
// Every write happens in the unit of work carried by ctx.
type CreateReservationHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.PricingPort
	Policy     policies.ReservationPolicy
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *CreateReservationHandler) Handle(ctx context.Context, cmd CreateReservationCommand) (*dto.Reservation, error) {
	now := handlersupport.Now(h.Clock)
	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	if nights := dr.Nights(); nights < domainpricing.MinStayNights || nights > domainpricing.MaxStayNights {
		return nil, domainpricing.ErrInvalidStayDuration
	}
	if err := domainreservation.ValidateStart(dr, now); err != nil {
		return nil, err
	}
	if cmd.Guests <= 0 {
		return nil, domainreservation.ErrInvalidGuests
	}

	var out dto.Reservation
	err = handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		id := h.reservationID(cmd)
		if cmd.IdempotencyKeyV != "" {
			existing, err := unit.Reservations().ByID(ctx, id)
			switch {
			case err == nil && existing.CustomerID == cmd.CustomerID:
				out = dto.MapReservation(existing)
				return nil
			case err == nil:
				return domainreservation.ErrDuplicateReference
			case !errors.Is(err, domainreservation.ErrReservationNotFound):
				return err
			}
		}

		room, err := unit.Rooms().ByID(ctx, domainrooms.RoomID(cmd.RoomID))
		if err != nil {
			return err
		}
		if err := room.Accommodates(cmd.Guests); err != nil {
			return err
		}
		calendar, err := unit.Calendars().Calendar(ctx, room.ID)
		if err != nil {
			return err
		}
		if !calendar.CanReserve(dr) {
			return domainreservation.ErrRoomUnavailable
		}

		price, err := h.Pricing.Quote(ctx, room, dr)
		if err != nil {
			return err
		}
		reference, err := h.allocateReference(ctx, unit)
		if err != nil {
			return err
		}
		res, err := domainreservation.New(domainreservation.CreateParams{
			ID:           id,
			Reference:    reference,
			RoomID:       room.ID,
			CustomerID:   cmd.CustomerID,
			ContactEmail: cmd.ContactEmail,
			Range:        dr,
			Guests:       cmd.Guests,
			Price:        price,
			Notes:        domainreservation.Notes{SpecialRequests: cmd.SpecialRequests},
			CreatedAt:    now,
		})
		if err != nil {
			return err
		}

		sources := []interface{ Drain() []events.DomainEvent }{res}
		if cmd.PromoCode != "" {
			eligible, err := promotions.Validate(ctx, unit, cmd.PromoCode, res.Original, res.CustomerID, now)
			if err != nil {
				return err
			}
			if err := promotions.Redeem(ctx, unit, eligible, res, res.CustomerID, now); err != nil {
				return err
			}
			sources = append(sources, eligible.Promotion)
		}

		if initial := h.initialState(); initial != domainreservation.StatePending {
			if err := res.TransitionTo(initial, calendar, "", now); err != nil {
				return err
			}
		}
		if err := unit.Reservations().Save(ctx, res); err != nil {
			return err
		}
		if res.State.Blocking() {
			if err := unit.Calendars().Save(ctx, calendar); err != nil {
				return err
			}
			sources = append(sources, calendar)
		}
		if err := handlersupport.Record(ctx, h.Outbox, h.Encoder, events.Collect(sources...)); err != nil {
			return err
		}
		if h.Logger != nil {
			h.Logger.Info("reservation created",
				"reservation_id", res.ID,
				"reference", res.Reference,
				"room_id", res.RoomID,
				"state", res.State,
				"total", res.Total.String(),
			)
		}
		out = dto.MapReservation(res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Contended answers a create whose every attempt lost a commit race. It
// re-reads the room calendar outside any unit and reports ErrRoomUnavailable,
// wrapping ErrOverlappingRange when a block now covers the stay.
func (h *CreateReservationHandler) Contended(ctx context.Context, cmd CreateReservationCommand, cause error) error {
	if h.Logger != nil {
		h.Logger.Warn("reservation create gave up on contention", "room_id", cmd.RoomID, "error", cause)
	}
	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return fmt.Errorf("%w: %v", domainreservation.ErrRoomUnavailable, err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	calendar, err := unit.Calendars().Calendar(execCtx, domainrooms.RoomID(cmd.RoomID))
	if err != nil {
		return fmt.Errorf("%w: %v", domainreservation.ErrRoomUnavailable, err)
	}
	if blocker, found := calendar.Conflicting(dr); found {
		return fmt.Errorf("%w: %w with reservation %s", domainreservation.ErrRoomUnavailable, domainavailability.ErrOverlappingRange, blocker)
	}
	return fmt.Errorf("%w: room %s is busy, retry the booking", domainreservation.ErrRoomUnavailable, cmd.RoomID)
}

func (h *CreateReservationHandler) reservationID(cmd CreateReservationCommand) domainreservation.ReservationID {
	if cmd.IdempotencyKeyV == "" {
		return domainreservation.ReservationID(uuid.NewString())
	}
	return domainreservation.ReservationID(uuid.NewSHA1(reservationNamespace, []byte(cmd.IdempotencyKeyV)).String())
}

func (h *CreateReservationHandler) initialState() domainreservation.State {
	if h.Policy.InitialState == "" {
		return domainreservation.StateConfirmed
	}
	return h.Policy.InitialState
}

func (h *CreateReservationHandler) allocateReference(ctx context.Context, unit uow.UnitOfWork) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		ref, err := domainreservation.NewReference()
		if err != nil {
			return "", err
		}
		_, err = unit.Reservations().ByReference(ctx, ref)
		if errors.Is(err, domainreservation.ErrReservationNotFound) {
			return ref, nil
		}
		if err != nil {
			return "", fmt.Errorf("reservations: reference lookup: %w", err)
		}
	}
	return "", ErrReferenceExhausted
}

var (
	_ commands.Handler[CreateReservationCommand, *dto.Reservation] = (*CreateReservationHandler)(nil)
	_ middleware.IdempotentCommand                                 = CreateReservationCommand{}
)
