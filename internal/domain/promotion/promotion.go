package promotion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hotelres/internal/domain/shared/events"
	"hotelres/internal/domain/shared/money"
)

var (
	ErrPromotionNotFound = errors.New("promotion: not found")
	ErrInvalidPromotion  = errors.New("promotion: invalid definition")
	ErrUsageLimitReached = errors.New("promotion: usage limit reached")
)

type Kind string

const (
	KindPercentage  Kind = "PERCENTAGE"
	KindFixedAmount Kind = "FIXED_AMOUNT"
)

// OncePerCustomerPrefix marks codes that a customer may redeem only once.
const OncePerCustomerPrefix = "WELCOME"

var hundred = decimal.NewFromInt(100)

type Promotion struct {
	ID              string
	Code            string
	Title           string
	Description     string
	Kind            Kind
	Value           decimal.Decimal
	MinimumAmount   decimal.Decimal
	MaximumDiscount *decimal.Decimal
	StartsAt        time.Time
	EndsAt          time.Time
	UsageLimit      *int
	UsageCount      int
	Active          bool
	OncePerCustomer bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

type Repository interface {
	ByCode(ctx context.Context, code string) (*Promotion, error)
	List(ctx context.Context) ([]*Promotion, error)
	Save(ctx context.Context, p *Promotion) error
}

type CreateParams struct {
	ID              string
	Code            string
	Title           string
	Description     string
	Kind            Kind
	Value           decimal.Decimal
	MinimumAmount   decimal.Decimal
	MaximumDiscount *decimal.Decimal
	StartsAt        time.Time
	EndsAt          time.Time
	UsageLimit      *int
	OncePerCustomer bool
	Active          bool
	CreatedAt       time.Time
}

// NormalizeCode trims and upper-cases a code the way it is stored.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func New(p CreateParams) (*Promotion, error) {
	code := NormalizeCode(p.Code)
	if p.ID == "" || code == "" {
		return nil, ErrInvalidPromotion
	}
	switch p.Kind {
	case KindPercentage:
		if p.Value.GreaterThan(hundred) {
			return nil, ErrInvalidPromotion
		}
	case KindFixedAmount:
	default:
		return nil, ErrInvalidPromotion
	}
	if !p.Value.IsPositive() || p.MinimumAmount.IsNegative() {
		return nil, ErrInvalidPromotion
	}
	if p.MaximumDiscount != nil && p.MaximumDiscount.IsNegative() {
		return nil, ErrInvalidPromotion
	}
	if !p.EndsAt.After(p.StartsAt) {
		return nil, ErrInvalidPromotion
	}
	if p.UsageLimit != nil && *p.UsageLimit < 0 {
		return nil, ErrInvalidPromotion
	}
	now := p.CreatedAt.UTC()
	return &Promotion{
		ID:              p.ID,
		Code:            code,
		Title:           p.Title,
		Description:     p.Description,
		Kind:            p.Kind,
		Value:           p.Value,
		MinimumAmount:   p.MinimumAmount,
		MaximumDiscount: p.MaximumDiscount,
		StartsAt:        p.StartsAt.UTC(),
		EndsAt:          p.EndsAt.UTC(),
		UsageLimit:      p.UsageLimit,
		Active:          p.Active,
		OncePerCustomer: p.OncePerCustomer || strings.HasPrefix(code, OncePerCustomerPrefix),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SingleUsePerCustomer reports whether a customer may redeem the code at most once.
func (p *Promotion) SingleUsePerCustomer() bool {
	return p.OncePerCustomer || strings.HasPrefix(p.Code, OncePerCustomerPrefix)
}

// Exhausted reports whether the usage cap has been reached.
func (p *Promotion) Exhausted() bool {
	return p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit
}

// CurrentlyValid reports whether the code is active, inside its window and not exhausted.
func (p *Promotion) CurrentlyValid(now time.Time) bool {
	return p.Active && !now.Before(p.StartsAt) && now.Before(p.EndsAt) && !p.Exhausted()
}

// CheckEligibility runs every check that does not need the usage history, in order.
func (p *Promotion) CheckEligibility(amount money.Money, now time.Time) error {
	if !p.Active {
		return Invalid(ReasonInactive)
	}
	if now.Before(p.StartsAt) {
		return Invalid(ReasonNotYetActive)
	}
	if !now.Before(p.EndsAt) {
		return Invalid(ReasonExpired)
	}
	if p.Exhausted() {
		return Invalid(ReasonUsageExhausted)
	}
	if amount.Amount.LessThan(p.MinimumAmount) {
		return Invalid(ReasonBelowMinimum)
	}
	return nil
}

// Discount computes the discount for amount, clamped to the cap and to the amount itself.
func (p *Promotion) Discount(amount money.Money) money.Money {
	var d decimal.Decimal
	switch p.Kind {
	case KindPercentage:
		d = amount.Amount.Mul(p.Value).Div(hundred)
		if p.MaximumDiscount != nil && d.GreaterThan(*p.MaximumDiscount) {
			d = *p.MaximumDiscount
		}
	case KindFixedAmount:
		d = p.Value
	}
	if d.GreaterThan(amount.Amount) {
		d = amount.Amount
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return money.Money{Amount: d.Round(2), Currency: amount.Currency}
}

// Redeem increments the usage counter, refusing to exceed the cap.
func (p *Promotion) Redeem(usage Usage) error {
	if p.Exhausted() {
		return ErrUsageLimitReached
	}
	p.UsageCount++
	p.UpdatedAt = usage.UsedAt.UTC()
	p.Record(PromotionRedeemed{
		PromotionID:   p.ID,
		Code:          p.Code,
		ReservationID: usage.ReservationID,
		CustomerID:    usage.CustomerID,
		Discount:      usage.DiscountApplied,
		At:            p.UpdatedAt,
	})
	return nil
}

// Restore gives back one use after a cancelled reservation. Usage rows are kept.
func (p *Promotion) Restore(reservationID string, now time.Time) {
	if p.UsageCount == 0 {
		return
	}
	p.UsageCount--
	p.UpdatedAt = now.UTC()
	p.Record(PromotionUsageRestored{PromotionID: p.ID, Code: p.Code, ReservationID: reservationID, At: p.UpdatedAt})
}

func (p *Promotion) SetActive(active bool, now time.Time) {
	if p.Active == active {
		return
	}
	p.Active = active
	p.UpdatedAt = now.UTC()
	p.Record(PromotionToggled{PromotionID: p.ID, Code: p.Code, Active: active, At: p.UpdatedAt})
}

func (p *Promotion) Clone() *Promotion {
	if p == nil {
		return nil
	}
	c := &Promotion{
		ID:              p.ID,
		Code:            p.Code,
		Title:           p.Title,
		Description:     p.Description,
		Kind:            p.Kind,
		Value:           p.Value,
		MinimumAmount:   p.MinimumAmount,
		StartsAt:        p.StartsAt,
		EndsAt:          p.EndsAt,
		UsageCount:      p.UsageCount,
		Active:          p.Active,
		OncePerCustomer: p.OncePerCustomer,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Version:         p.Version,
	}
	if p.MaximumDiscount != nil {
		v := *p.MaximumDiscount
		c.MaximumDiscount = &v
	}
	if p.UsageLimit != nil {
		v := *p.UsageLimit
		c.UsageLimit = &v
	}
	return c
}
