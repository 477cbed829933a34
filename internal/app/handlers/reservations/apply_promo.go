package reservations

import (
	"context"
	"errors"
	"strings"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/dto"
	"hotelres/internal/app/handlers/promotions"
	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/middleware"
	"hotelres/internal/app/uow"
	domainreservation "hotelres/internal/domain/reservation"
	"hotelres/internal/domain/shared/events"
)

const applyPromoKey = "reservations.apply_promo"

var ErrCustomerMismatch = errors.New("reservations: reservation belongs to another customer")

type ApplyPromoCodeCommand struct {
	ReservationID   string `json:"reservation_id" validate:"required"`
	Code            string `json:"code" validate:"required,max=64"`
	CustomerID      string `json:"customer_id" validate:"max=128"`
	IdempotencyKeyV string `json:"-"`
}

func (c ApplyPromoCodeCommand) Key() string { return applyPromoKey }

func (c ApplyPromoCodeCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ApplyPromoCodeCommand) ResultPrototype() any { return &dto.Reservation{} }

// ApplyPromoCodeHandler discounts an existing reservation against its
// pre-discount total. A reservation carries at most one code.
type ApplyPromoCodeHandler struct {
	*Lifecycle
}

func (h *ApplyPromoCodeHandler) Handle(ctx context.Context, cmd ApplyPromoCodeCommand) (*dto.Reservation, error) {
	var out dto.Reservation
	err := handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := unit.Reservations().ByID(ctx, domainreservation.ReservationID(cmd.ReservationID))
		if err != nil {
			return err
		}
		customerID := strings.TrimSpace(cmd.CustomerID)
		if customerID == "" {
			customerID = res.CustomerID
		}
		if customerID != res.CustomerID {
			return ErrCustomerMismatch
		}
		if res.PromoCode != "" {
			return domainreservation.ErrPromoAlreadyApplied
		}
		if res.State.Terminal() || res.State == domainreservation.StateCheckedOut {
			return domainreservation.ErrReservationClosed
		}
		now := h.now()
		eligible, err := promotions.Validate(ctx, unit, cmd.Code, res.Original, customerID, now)
		if err != nil {
			return err
		}
		if err := promotions.Redeem(ctx, unit, eligible, res, customerID, now); err != nil {
			return err
		}
		if err := unit.Reservations().Save(ctx, res); err != nil {
			return err
		}
		if err := h.record(ctx, events.Collect(res, eligible.Promotion)); err != nil {
			return err
		}
		if h.Logger != nil {
			h.Logger.Info("promo code applied",
				"reservation_id", res.ID,
				"code", res.PromoCode,
				"discount", res.Discount.String(),
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

var (
	_ commands.Handler[ApplyPromoCodeCommand, *dto.Reservation] = (*ApplyPromoCodeHandler)(nil)
	_ middleware.IdempotentCommand                              = ApplyPromoCodeCommand{}
)
