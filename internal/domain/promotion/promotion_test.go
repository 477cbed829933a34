package promotion

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hotelres/internal/domain/shared/money"
)

var (
	start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(v int) *int { return &v }

func newPromo(t *testing.T, mutate func(*CreateParams)) *Promotion {
	t.Helper()
	params := CreateParams{
		ID:       "p1",
		Code:     " summer20 ",
		Kind:     KindPercentage,
		Value:    dec("20"),
		StartsAt: start,
		EndsAt:   end,
		Active:   true,
	}
	if mutate != nil {
		mutate(&params)
	}
	p, err := New(params)
	if err != nil {
		t.Fatalf("new promotion: %v", err)
	}
	return p
}

func TestNewNormalizesCode(t *testing.T) {
	p := newPromo(t, nil)
	if p.Code != "SUMMER20" {
		t.Fatalf("code = %q", p.Code)
	}
	if p.SingleUsePerCustomer() {
		t.Fatalf("SUMMER20 must not be single-use")
	}
	welcome := newPromo(t, func(c *CreateParams) { c.Code = "welcome10" })
	if !welcome.SingleUsePerCustomer() {
		t.Fatalf("WELCOME codes are single-use per customer")
	}
}

func TestDiscountPercentageCapped(t *testing.T) {
	p := newPromo(t, func(c *CreateParams) { c.MaximumDiscount = decPtr("50") })
	got := p.Discount(money.Must("600", "USD"))
	if !got.Amount.Equal(dec("50")) {
		t.Fatalf("discount = %s, want 50", got.Amount)
	}
	got = p.Discount(money.Must("100", "USD"))
	if !got.Amount.Equal(dec("20")) {
		t.Fatalf("discount = %s, want 20", got.Amount)
	}
}

func TestDiscountFixedClampedToAmount(t *testing.T) {
	p := newPromo(t, func(c *CreateParams) {
		c.Kind = KindFixedAmount
		c.Value = dec("20")
	})
	got := p.Discount(money.Must("15", "USD"))
	if !got.Amount.Equal(dec("15")) {
		t.Fatalf("discount = %s, want 15", got.Amount)
	}
}

func TestDiscountRoundsHalfUp(t *testing.T) {
	p := newPromo(t, func(c *CreateParams) { c.Value = dec("12.5") })
	got := p.Discount(money.Must("100.10", "USD"))
	if !got.Amount.Equal(dec("12.51")) {
		t.Fatalf("discount = %s, want 12.51", got.Amount)
	}
}

func TestCheckEligibilityOrder(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	amount := money.Must("100", "USD")
	cases := []struct {
		name   string
		mutate func(*Promotion)
		amount money.Money
		now    time.Time
		want   Reason
	}{
		{"inactive wins over expired", func(p *Promotion) { p.Active = false }, amount, end.Add(time.Hour), ReasonInactive},
		{"not yet active", nil, amount, start.Add(-time.Second), ReasonNotYetActive},
		{"end is exclusive", nil, amount, end, ReasonExpired},
		{"exhausted", func(p *Promotion) { p.UsageLimit = intPtr(2); p.UsageCount = 2 }, amount, now, ReasonUsageExhausted},
		{"exhausted before minimum", func(p *Promotion) {
			p.UsageLimit = intPtr(1)
			p.UsageCount = 1
			p.MinimumAmount = dec("500")
		}, amount, now, ReasonUsageExhausted},
		{"below minimum", func(p *Promotion) { p.MinimumAmount = dec("100.01") }, amount, now, ReasonBelowMinimum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPromo(t, nil)
			if tc.mutate != nil {
				tc.mutate(p)
			}
			err := p.CheckEligibility(tc.amount, tc.now)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
			reason, _ := ReasonOf(err)
			if reason != tc.want {
				t.Fatalf("reason = %s, want %s", reason, tc.want)
			}
		})
	}
	if err := newPromo(t, nil).CheckEligibility(amount, start); err != nil {
		t.Fatalf("start is inclusive: %v", err)
	}
}

func TestRedeemRespectsLimit(t *testing.T) {
	p := newPromo(t, func(c *CreateParams) { c.UsageLimit = intPtr(1) })
	usage := Usage{ReservationID: "r1", CustomerID: "c1", UsedAt: time.Now()}
	if err := p.Redeem(usage); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if err := p.Redeem(usage); !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("err = %v", err)
	}
	if p.UsageCount != 1 {
		t.Fatalf("count = %d", p.UsageCount)
	}
	p.Restore("r1", time.Now())
	if p.UsageCount != 0 {
		t.Fatalf("count after restore = %d", p.UsageCount)
	}
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	bad := []func(*CreateParams){
		func(c *CreateParams) { c.Code = "" },
		func(c *CreateParams) { c.Value = dec("0") },
		func(c *CreateParams) { c.Value = dec("120") },
		func(c *CreateParams) { c.EndsAt = c.StartsAt },
		func(c *CreateParams) { c.Kind = "BOGUS" },
		func(c *CreateParams) { c.UsageLimit = intPtr(-1) },
	}
	for i, mutate := range bad {
		params := CreateParams{ID: "p", Code: "X", Kind: KindPercentage, Value: dec("10"), StartsAt: start, EndsAt: end}
		mutate(&params)
		if _, err := New(params); !errors.Is(err, ErrInvalidPromotion) {
			t.Fatalf("case %d: err = %v", i, err)
		}
	}
}
