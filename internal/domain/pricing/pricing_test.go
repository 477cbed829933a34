package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/money"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestQuoteThreeNightsAtHundred(t *testing.T) {
	b, err := Quote(money.Must("100.00", "USD"), 3)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"subtotal", b.Subtotal.Amount, "300.00"},
		{"service", b.ServiceCharge.Amount, "30.00"},
		{"tax", b.Tax.Amount, "6.00"},
		{"total", b.Total.Amount, "336.00"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if !b.Consistent() {
		t.Fatalf("breakdown inconsistent: %+v", b)
	}
}

func TestQuoteTotalIsSumOfRoundedComponents(t *testing.T) {
	// 100.25 * 1.12 is exactly 112.28, but service 10.025 and tax 2.005 each
	// round up, so the itemised total is a cent higher.
	b, err := Quote(money.Must("100.25", "USD"), 1)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !b.ServiceCharge.Amount.Equal(dec("10.03")) || !b.Tax.Amount.Equal(dec("2.01")) {
		t.Fatalf("service = %s tax = %s", b.ServiceCharge.Amount, b.Tax.Amount)
	}
	if !b.Total.Amount.Equal(dec("112.29")) {
		t.Fatalf("total = %s, want 112.29", b.Total.Amount)
	}
	if !b.Consistent() {
		t.Fatalf("breakdown inconsistent: %+v", b)
	}
}

func TestQuoteRoundsEachComponentOnce(t *testing.T) {
	b, err := Quote(money.Must("33.33", "USD"), 1)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !b.ServiceCharge.Amount.Equal(dec("3.33")) {
		t.Fatalf("service = %s", b.ServiceCharge.Amount)
	}
	if !b.Tax.Amount.Equal(dec("0.67")) {
		t.Fatalf("tax = %s", b.Tax.Amount)
	}
	if !b.Total.Amount.Equal(dec("37.33")) {
		t.Fatalf("total = %s", b.Total.Amount)
	}
	if !b.Consistent() {
		t.Fatalf("breakdown inconsistent")
	}
}

func TestQuoteRejectsOutOfRangeNights(t *testing.T) {
	for _, n := range []int{0, -1, 31} {
		if _, err := Quote(money.Must("100", "USD"), n); !errors.Is(err, ErrInvalidStayDuration) {
			t.Fatalf("nights %d: err = %v", n, err)
		}
	}
	if _, err := Quote(money.Must("100", "USD"), 30); err != nil {
		t.Fatalf("30 nights should be allowed: %v", err)
	}
}

func TestFixedRateUsesRoomRate(t *testing.T) {
	room, err := rooms.NewRoom(rooms.CreateParams{ID: "r1", Number: "101", NightlyRate: money.Must("80", "USD"), Capacity: 2})
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	in, _ := daterange.ParseDay("2026-07-01")
	out, _ := daterange.ParseDay("2026-07-03")
	dr, _ := daterange.New(in, out)
	b, err := FixedRate{}.Quote(context.Background(), room, dr)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !b.Total.Amount.Equal(dec("179.20")) {
		t.Fatalf("total = %s", b.Total.Amount)
	}
}
