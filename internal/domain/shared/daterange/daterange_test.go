package daterange

import (
	"errors"
	"testing"
	"time"
)

func mustDay(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDay(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return d
}

func TestNewNormalizesToDays(t *testing.T) {
	in := time.Date(2026, 5, 1, 15, 30, 0, 0, time.FixedZone("X", 3*3600))
	out := time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC)
	dr, err := New(in, out)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := dr.CheckIn.Format(time.RFC3339); got != "2026-05-01T00:00:00Z" {
		t.Fatalf("check-in = %s", got)
	}
	if dr.Nights() != 3 {
		t.Fatalf("nights = %d, want 3", dr.Nights())
	}
}

func TestNewRejectsEmptyAndInvertedRanges(t *testing.T) {
	a := mustDay(t, "2026-05-03")
	b := mustDay(t, "2026-05-01")
	cases := map[string][2]time.Time{
		"inverted":  {a, b},
		"same day":  {a, a},
		"zero date": {{}, a},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := New(tc[0], tc[1]); !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("err = %v, want ErrInvalidRange", err)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	base, _ := New(mustDay(t, "2026-05-01"), mustDay(t, "2026-05-04"))
	cases := []struct {
		name     string
		in, out  string
		overlaps bool
	}{
		{"back to back after", "2026-05-04", "2026-05-06", false},
		{"back to back before", "2026-04-28", "2026-05-01", false},
		{"inside", "2026-05-02", "2026-05-03", true},
		{"covering", "2026-04-30", "2026-05-05", true},
		{"tail overlap", "2026-05-03", "2026-05-07", true},
		{"disjoint", "2026-06-01", "2026-06-02", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			other, err := New(mustDay(t, tc.in), mustDay(t, tc.out))
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if got := base.Overlaps(other); got != tc.overlaps {
				t.Fatalf("Overlaps = %v, want %v", got, tc.overlaps)
			}
			if got := other.Overlaps(base); got != tc.overlaps {
				t.Fatalf("Overlaps is not symmetric")
			}
		})
	}
}
