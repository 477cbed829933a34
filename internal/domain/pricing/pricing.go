package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/money"
)

var (
	ErrInvalidStayDuration = errors.New("pricing: stay must be between 1 and 30 nights")
	ErrCurrencyUnset       = errors.New("pricing: currency must be defined")
	ErrNegativeRate        = errors.New("pricing: nightly rate cannot be negative")
)

const (
	MinStayNights = 1
	MaxStayNights = 30
)

var (
	ServiceChargeRate = decimal.RequireFromString("0.10")
	TaxRate           = decimal.RequireFromString("0.02")
)

// Breakdown is the priced stay before any promotional discount.
type Breakdown struct {
	Nights        int
	Nightly       money.Money
	Subtotal      money.Money
	ServiceCharge money.Money
	Tax           money.Money
	Total         money.Money
}

// Quote prices nights at rate. Each component is computed exactly and rounded
// half-up to cents once; Total is the sum of the rounded components.
func Quote(rate money.Money, nights int) (Breakdown, error) {
	if nights < MinStayNights || nights > MaxStayNights {
		return Breakdown{}, ErrInvalidStayDuration
	}
	if rate.Currency == "" {
		return Breakdown{}, ErrCurrencyUnset
	}
	if rate.IsNegative() {
		return Breakdown{}, ErrNegativeRate
	}
	exact := rate.Multiply(int64(nights))
	subtotal := exact.Round()
	service := exact.Scale(ServiceChargeRate).Round()
	tax := exact.Scale(TaxRate).Round()
	total := money.Money{
		Amount:   subtotal.Amount.Add(service.Amount).Add(tax.Amount),
		Currency: rate.Currency,
	}
	return Breakdown{
		Nights:        nights,
		Nightly:       rate,
		Subtotal:      subtotal,
		ServiceCharge: service,
		Tax:           tax,
		Total:         total,
	}, nil
}

// Consistent reports whether Total still equals the sum of its components.
func (b Breakdown) Consistent() bool {
	sum := b.Subtotal.Amount.Add(b.ServiceCharge.Amount).Add(b.Tax.Amount)
	return sum.Equal(b.Total.Amount)
}

// FixedRate prices every stay at the room's nightly rate.
type FixedRate struct{}

func (FixedRate) Quote(_ context.Context, room *rooms.Room, dr daterange.DateRange) (Breakdown, error) {
	if room == nil {
		return Breakdown{}, rooms.ErrRoomNotFound
	}
	return Quote(room.NightlyRate, dr.Nights())
}
