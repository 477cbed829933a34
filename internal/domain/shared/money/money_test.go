package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"1.005":  "1.01",
		"1.004":  "1",
		"2.675":  "2.68",
		"10.125": "10.13",
	}
	for in, want := range cases {
		got := Must(in, "usd").Round()
		if !got.Amount.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("Round(%s) = %s, want %s", in, got.Amount, want)
		}
		if got.Currency != "USD" {
			t.Fatalf("currency = %q", got.Currency)
		}
	}
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	_, err := Must("1", "USD").Add(Must("1", "EUR"))
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("err = %v, want ErrCurrencyMismatch", err)
	}
}

func TestMin(t *testing.T) {
	a := Must("50", "USD")
	b := Must("600", "USD")
	if got := b.Min(a); !got.Equal(a) {
		t.Fatalf("Min = %s", got)
	}
	if got := a.Min(b); !got.Equal(a) {
		t.Fatalf("Min = %s", got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("12,5", "USD"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Parse("12.5", "US"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("err = %v", err)
	}
}
