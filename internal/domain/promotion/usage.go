package promotion

import (
	"context"
	"time"

	"hotelres/internal/domain/shared/money"
)

// Usage is the append-only proof that a discount was granted.
type Usage struct {
	ID              string
	PromotionID     string
	Code            string
	ReservationID   string
	CustomerID      string
	DiscountApplied money.Money
	OncePerCustomer bool
	UsedAt          time.Time
}

type UsageRepository interface {
	Add(ctx context.Context, usage Usage) error
	ExistsForCustomer(ctx context.Context, promotionID, customerID string) (bool, error)
	ByPromotion(ctx context.Context, promotionID string) ([]Usage, error)
}

// Statistics summarizes redemptions of one promotion.
type Statistics struct {
	Code          string
	UsageCount    int
	TotalDiscount money.Money
	History       []Usage
}

func Summarize(p *Promotion, usages []Usage, currency string) Statistics {
	total := money.Zero(currency)
	for _, u := range usages {
		total.Amount = total.Amount.Add(u.DiscountApplied.Amount)
	}
	return Statistics{
		Code:          p.Code,
		UsageCount:    len(usages),
		TotalDiscount: total,
		History:       append([]Usage(nil), usages...),
	}
}
