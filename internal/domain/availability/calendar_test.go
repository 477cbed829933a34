package availability

import (
	"errors"
	"testing"
	"time"

	"hotelres/internal/domain/shared/daterange"
)

func stay(t *testing.T, in, out string) daterange.DateRange {
	t.Helper()
	a, _ := daterange.ParseDay(in)
	b, _ := daterange.ParseDay(out)
	dr, err := daterange.New(a, b)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return dr
}

func TestReserveRejectsOverlap(t *testing.T) {
	cal := NewCalendar("101")
	now := time.Now()
	if err := cal.Reserve(stay(t, "2026-05-01", "2026-05-04"), "r1", now); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	err := cal.Reserve(stay(t, "2026-05-03", "2026-05-05"), "r2", now)
	if !errors.Is(err, ErrOverlappingRange) {
		t.Fatalf("err = %v, want ErrOverlappingRange", err)
	}
	if len(cal.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(cal.Blocks))
	}
}

func TestReserveAllowsBackToBack(t *testing.T) {
	cal := NewCalendar("101")
	now := time.Now()
	if err := cal.Reserve(stay(t, "2026-05-01", "2026-05-04"), "r1", now); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := cal.Reserve(stay(t, "2026-05-04", "2026-05-06"), "r2", now); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := cal.Reserve(stay(t, "2026-04-28", "2026-05-01"), "r3", now); err != nil {
		t.Fatalf("third: %v", err)
	}
	if got := cal.Blocks[0].Reference; got != "r3" {
		t.Fatalf("blocks not ordered by check-in, first = %s", got)
	}
}

func TestReleaseFreesInterval(t *testing.T) {
	cal := NewCalendar("101")
	now := time.Now()
	r := stay(t, "2026-05-01", "2026-05-04")
	_ = cal.Reserve(r, "r1", now)
	if err := cal.Release("r1", now); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !cal.CanReserve(r) {
		t.Fatalf("interval still blocked after release")
	}
	if err := cal.Release("r1", now); !errors.Is(err, ErrRangeNotFound) {
		t.Fatalf("second release err = %v", err)
	}
	names := map[string]int{}
	for _, ev := range cal.Drain() {
		names[ev.EventName()]++
	}
	if names["calendar.blocked"] != 1 || names["calendar.released"] != 1 {
		t.Fatalf("events = %v", names)
	}
}

func TestReserveSameReferenceIsNoop(t *testing.T) {
	cal := NewCalendar("101")
	r := stay(t, "2026-05-01", "2026-05-04")
	_ = cal.Reserve(r, "r1", time.Now())
	if err := cal.Reserve(r, "r1", time.Now()); err != nil {
		t.Fatalf("re-reserve: %v", err)
	}
	if len(cal.Blocks) != 1 {
		t.Fatalf("blocks = %d", len(cal.Blocks))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cal := NewCalendar("101")
	_ = cal.Reserve(stay(t, "2026-05-01", "2026-05-04"), "r1", time.Now())
	clone := cal.Clone()
	_ = clone.Release("r1", time.Now())
	if len(cal.Blocks) != 1 {
		t.Fatalf("original mutated through clone")
	}
	if len(clone.PendingEvents()) != 1 {
		t.Fatalf("clone should only carry its own events")
	}
}
