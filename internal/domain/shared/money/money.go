package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrInvalidAmount    = errors.New("money: invalid amount")
)

const DefaultCurrency = "USD"

// Money keeps exact decimal amounts; rounding happens only where a caller asks for it.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// New constructs Money validating minimal invariants.
func New(amount decimal.Decimal, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Parse builds Money from a decimal string such as "120.50".
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return New(d, currency)
}

// Must parses Money and panics on failure; useful in tests and fixtures.
func Must(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToUpper(currency)}
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(times)), Currency: m.Currency}
}

// Scale multiplies by an arbitrary decimal factor (rates, percentages).
func (m Money) Scale(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Round rounds half away from zero to two decimal places.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(2), Currency: m.Currency}
}

// Min returns the smaller of the two amounts.
func (m Money) Min(other Money) Money {
	if other.Amount.LessThan(m.Amount) {
		return Money{Amount: other.Amount, Currency: m.Currency}
	}
	return m
}

func (m Money) LessThan(other Money) bool {
	return m.Amount.LessThan(other.Amount)
}

func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// String renders the amount with two decimals followed by the currency code.
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
