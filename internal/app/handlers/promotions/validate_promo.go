package promotions

import (
	"context"
	"strings"
	"time"

	"hotelres/internal/app/dto"
	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/queries"
	"hotelres/internal/app/uow"
	domainpromotion "hotelres/internal/domain/promotion"
	"hotelres/internal/domain/shared/money"
)

const validatePromoKey = "promotions.validate"

type ValidatePromoQuery struct {
	Code       string `json:"code" validate:"required,max=64"`
	Amount     string `json:"amount" validate:"required"`
	Currency   string `json:"currency" validate:"omitempty,len=3"`
	CustomerID string `json:"customer_id" validate:"required"`
}

func (q ValidatePromoQuery) Key() string { return validatePromoKey }

func (q ValidatePromoQuery) CacheKey() string {
	return strings.Join([]string{domainpromotion.NormalizeCode(q.Code), q.Amount, q.Currency, q.CustomerID}, "|")
}

func (q ValidatePromoQuery) ResultPrototype() any { return &dto.PromoValidation{} }

// ValidatePromoHandler previews a code against an amount. An ineligible code is
// a successful answer with Valid=false, not an error.
type ValidatePromoHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
}

func (h *ValidatePromoHandler) Handle(ctx context.Context, q ValidatePromoQuery) (*dto.PromoValidation, error) {
	currency := q.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	amount, err := money.Parse(q.Amount, currency)
	if err != nil {
		return nil, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	out := &dto.PromoValidation{
		Code:           domainpromotion.NormalizeCode(q.Code),
		OriginalAmount: dto.Amount(amount),
		Discount:       dto.Amount(money.Zero(currency)),
		FinalAmount:    dto.Amount(amount),
	}
	eligible, err := Validate(execCtx, unit, q.Code, amount, q.CustomerID, handlersupport.Now(h.Clock))
	if err != nil {
		reason, ok := domainpromotion.ReasonOf(err)
		if !ok {
			return nil, err
		}
		out.Reason = string(reason)
		out.Message = reason.Message()
		return out, nil
	}
	final, err := amount.Sub(eligible.Discount)
	if err != nil {
		return nil, err
	}
	out.Valid = true
	out.Discount = dto.Amount(eligible.Discount)
	out.FinalAmount = dto.Amount(final)
	return out, nil
}

var (
	_ queries.Handler[ValidatePromoQuery, *dto.PromoValidation] = (*ValidatePromoHandler)(nil)
	_ queries.Cacheable                                         = ValidatePromoQuery{}
)
