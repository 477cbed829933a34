package promotions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"hotelres/internal/app/uow"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	"hotelres/internal/domain/shared/money"
)

// Eligible is a promotion that passed every check for one amount and customer.
type Eligible struct {
	Promotion *domainpromotion.Promotion
	Discount  money.Money
}

// Validate runs the promotion checks in order and stops at the first failure.
// It reads through unit and never writes.
func Validate(ctx context.Context, unit uow.UnitOfWork, code string, amount money.Money, customerID string, now time.Time) (Eligible, error) {
	promo, err := unit.Promotions().ByCode(ctx, domainpromotion.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, domainpromotion.ErrPromotionNotFound) {
			return Eligible{}, domainpromotion.Invalid(domainpromotion.ReasonNotFound)
		}
		return Eligible{}, err
	}
	if err := promo.CheckEligibility(amount, now); err != nil {
		return Eligible{}, err
	}
	if promo.SingleUsePerCustomer() {
		used, err := unit.Usages().ExistsForCustomer(ctx, promo.ID, customerID)
		if err != nil {
			return Eligible{}, err
		}
		if used {
			return Eligible{}, domainpromotion.Invalid(domainpromotion.ReasonAlreadyUsedByCustomer)
		}
	}
	return Eligible{Promotion: promo, Discount: promo.Discount(amount)}, nil
}

// Redeem appends the usage row, bumps the promotion counter and discounts res.
// All three writes go through unit so they commit or roll back together.
func Redeem(ctx context.Context, unit uow.UnitOfWork, e Eligible, res *domainreservation.Reservation, customerID string, now time.Time) error {
	usage := domainpromotion.Usage{
		ID:              uuid.NewString(),
		PromotionID:     e.Promotion.ID,
		Code:            e.Promotion.Code,
		ReservationID:   string(res.ID),
		CustomerID:      customerID,
		DiscountApplied: e.Discount,
		OncePerCustomer: e.Promotion.SingleUsePerCustomer(),
		UsedAt:          now,
	}
	if err := e.Promotion.Redeem(usage); err != nil {
		if errors.Is(err, domainpromotion.ErrUsageLimitReached) {
			return domainpromotion.Invalid(domainpromotion.ReasonUsageExhausted)
		}
		return err
	}
	if err := res.ApplyDiscount(e.Promotion.Code, e.Discount, now); err != nil {
		return err
	}
	if err := unit.Usages().Add(ctx, usage); err != nil {
		return err
	}
	return unit.Promotions().Save(ctx, e.Promotion)
}
