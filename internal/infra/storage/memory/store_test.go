package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	appoutbox "hotelres/internal/app/outbox"
	"hotelres/internal/app/uow"
	domainavailability "hotelres/internal/domain/availability"
	domainpricing "hotelres/internal/domain/pricing"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/money"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func stay(t *testing.T, in, out string) daterange.DateRange {
	t.Helper()
	checkIn, _ := daterange.ParseDay(in)
	checkOut, _ := daterange.ParseDay(out)
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return dr
}

func newReservation(t *testing.T, id, reference string, dr daterange.DateRange) *domainreservation.Reservation {
	t.Helper()
	price, err := domainpricing.Quote(money.Must("100", "USD"), dr.Nights())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	res, err := domainreservation.New(domainreservation.CreateParams{
		ID:         domainreservation.ReservationID(id),
		Reference:  reference,
		RoomID:     "101",
		CustomerID: "c-" + id,
		Range:      dr,
		Guests:     1,
		Price:      price,
		CreatedAt:  testNow,
	})
	if err != nil {
		t.Fatalf("new reservation: %v", err)
	}
	return res
}

func begin(t *testing.T, s *Store) uow.UnitOfWork {
	t.Helper()
	unit, err := s.Begin(context.Background(), uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return unit
}

func TestUnitReadsItsOwnWritesOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	room, err := domainrooms.NewRoom(domainrooms.CreateParams{ID: "101", Number: "101", NightlyRate: money.Must("100", "USD"), Capacity: 2})
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	writer := begin(t, s)
	if err := writer.Rooms().Save(ctx, room); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := writer.Rooms().ByID(ctx, "101"); err != nil {
		t.Fatalf("own write invisible: %v", err)
	}
	reader := begin(t, s)
	if _, err := reader.Rooms().ByID(ctx, "101"); !errors.Is(err, domainrooms.ErrRoomNotFound) {
		t.Fatalf("uncommitted write leaked: %v", err)
	}
	if err := writer.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := reader.Rooms().ByID(ctx, "101"); err != nil {
		t.Fatalf("committed write invisible: %v", err)
	}
	if err := writer.Commit(ctx); !errors.Is(err, ErrUnitClosed) {
		t.Fatalf("second commit err = %v", err)
	}
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	s := NewStore()
	unit, _ := s.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	cal := domainavailability.NewCalendar("101")
	if err := unit.Calendars().Save(context.Background(), cal); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("err = %v", err)
	}
}

func view(t *testing.T, s *Store) uow.UnitOfWork {
	t.Helper()
	unit, err := s.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	t.Cleanup(func() { _ = unit.Rollback(context.Background()) })
	return unit
}

func TestWritableUnitsQueueOnRoomCalendar(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	first, second := begin(t, s), begin(t, s)

	calA, err := first.Calendars().Calendar(ctx, "101")
	if err != nil {
		t.Fatalf("calendar a: %v", err)
	}
	got := make(chan *domainavailability.Calendar, 1)
	go func() {
		cal, err := second.Calendars().Calendar(ctx, "101")
		if err != nil {
			t.Errorf("calendar b: %v", err)
		}
		got <- cal
	}()
	select {
	case <-got:
		t.Fatal("second unit read the calendar while the first still held it")
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := view(t, s).Calendars().Calendar(ctx, "101"); err != nil {
		t.Fatalf("read-only unit blocked or failed: %v", err)
	}
	if err := calA.Reserve(stay(t, "2026-05-10", "2026-05-12"), "a", testNow); err != nil {
		t.Fatalf("reserve a: %v", err)
	}
	if err := first.Calendars().Save(ctx, calA); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := first.Commit(ctx); err != nil {
		t.Fatalf("commit a: %v", err)
	}

	var calB *domainavailability.Calendar
	select {
	case calB = <-got:
	case <-time.After(time.Second):
		t.Fatal("second unit never got the calendar after commit")
	}
	if calB == nil || calB.Version != 1 || len(calB.Blocks) != 1 {
		t.Fatalf("calendar b = %+v", calB)
	}
	if err := calB.Reserve(stay(t, "2026-05-11", "2026-05-13"), "b", testNow); !errors.Is(err, domainavailability.ErrOverlappingRange) {
		t.Fatalf("overlap err = %v", err)
	}
	if err := calB.Reserve(stay(t, "2026-05-12", "2026-05-13"), "c", testNow); err != nil {
		t.Fatalf("reserve c: %v", err)
	}
	if err := second.Calendars().Save(ctx, calB); err != nil {
		t.Fatalf("save c: %v", err)
	}
	if err := second.Commit(ctx); err != nil {
		t.Fatalf("commit c: %v", err)
	}
	cal, _ := view(t, s).Calendars().Calendar(ctx, "101")
	if len(cal.Blocks) != 2 || cal.Version != 2 {
		t.Fatalf("calendar = %+v", cal)
	}
}

func TestRollbackReleasesLocksAndWaitersHonourContext(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	holder := begin(t, s)
	if _, err := holder.Promotions().ByCode(ctx, "welcome10"); !errors.Is(err, domainpromotion.ErrPromotionNotFound) {
		t.Fatalf("by code err = %v", err)
	}

	waiter := begin(t, s)
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := waiter.Promotions().ByCode(short, "WELCOME10"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("blocked read err = %v", err)
	}

	if err := holder.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, err := waiter.Promotions().ByCode(ctx, "WELCOME10"); !errors.Is(err, domainpromotion.ErrPromotionNotFound) {
		t.Fatalf("read after rollback err = %v", err)
	}
	_ = waiter.Rollback(ctx)
}

func TestCommitDetectsStaleCalendar(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	stale, _ := view(t, s).Calendars().Calendar(ctx, "101")

	first := begin(t, s)
	calA, _ := first.Calendars().Calendar(ctx, "101")
	if err := calA.Reserve(stay(t, "2026-05-10", "2026-05-12"), "a", testNow); err != nil {
		t.Fatalf("reserve a: %v", err)
	}
	if err := first.Calendars().Save(ctx, calA); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := first.Commit(ctx); err != nil {
		t.Fatalf("commit a: %v", err)
	}

	second := begin(t, s)
	if err := stale.Reserve(stay(t, "2026-05-11", "2026-05-13"), "b", testNow); err != nil {
		t.Fatalf("reserve b: %v", err)
	}
	if err := second.Calendars().Save(ctx, stale); err != nil {
		t.Fatalf("save b: %v", err)
	}
	if err := second.Commit(ctx); !errors.Is(err, uow.ErrConcurrentUpdate) {
		t.Fatalf("commit b err = %v", err)
	}

	cal, _ := view(t, s).Calendars().Calendar(ctx, "101")
	if len(cal.Blocks) != 1 || cal.Blocks[0].Reference != "a" || cal.Version != 1 {
		t.Fatalf("calendar = %+v", cal)
	}
}

func TestCommitRejectsOverlappingBlockingReservations(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	first, second := begin(t, s), begin(t, s)

	a := newReservation(t, "a", "BKAAAAAAAAAA", stay(t, "2026-05-10", "2026-05-12"))
	b := newReservation(t, "b", "BKBBBBBBBBBB", stay(t, "2026-05-11", "2026-05-13"))
	a.State, b.State = domainreservation.StateConfirmed, domainreservation.StateConfirmed
	_ = first.Reservations().Save(ctx, a)
	_ = second.Reservations().Save(ctx, b)
	if err := first.Commit(ctx); err != nil {
		t.Fatalf("commit a: %v", err)
	}
	err := second.Commit(ctx)
	if !errors.Is(err, domainreservation.ErrRoomUnavailable) || !errors.Is(err, domainavailability.ErrOverlappingRange) {
		t.Fatalf("commit b err = %v", err)
	}

	third := begin(t, s)
	c := newReservation(t, "c", "BKCCCCCCCCCC", stay(t, "2026-05-12", "2026-05-14"))
	c.State = domainreservation.StateConfirmed
	_ = third.Reservations().Save(ctx, c)
	if err := third.Commit(ctx); err != nil {
		t.Fatalf("back-to-back stay rejected: %v", err)
	}
}

func TestCommitRejectsDuplicateReference(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	first, second := begin(t, s), begin(t, s)
	_ = first.Reservations().Save(ctx, newReservation(t, "a", "BKSAMESAMESA", stay(t, "2026-05-10", "2026-05-12")))
	_ = second.Reservations().Save(ctx, newReservation(t, "b", "BKSAMESAMESA", stay(t, "2026-06-10", "2026-06-12")))
	if err := first.Commit(ctx); err != nil {
		t.Fatalf("commit a: %v", err)
	}
	if err := second.Commit(ctx); !errors.Is(err, domainreservation.ErrDuplicateReference) {
		t.Fatalf("commit b err = %v", err)
	}
}

func TestCommitEnforcesUsageRules(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	usage := func(id, reservation, customer string) domainpromotion.Usage {
		return domainpromotion.Usage{
			ID: id, PromotionID: "promo-welcome10", Code: "WELCOME10", ReservationID: reservation,
			CustomerID: customer, DiscountApplied: money.Must("10", "USD"), OncePerCustomer: true, UsedAt: testNow,
		}
	}
	first, second, third := begin(t, s), begin(t, s), begin(t, s)
	_ = first.Usages().Add(ctx, usage("u1", "r1", "alice"))
	_ = second.Usages().Add(ctx, usage("u2", "r2", "alice"))
	_ = third.Usages().Add(ctx, usage("u3", "r1", "bob"))
	if err := first.Commit(ctx); err != nil {
		t.Fatalf("commit first: %v", err)
	}
	if reason, _ := domainpromotion.ReasonOf(second.Commit(ctx)); reason != domainpromotion.ReasonAlreadyUsedByCustomer {
		t.Fatalf("same customer reason = %q", reason)
	}
	if err := third.Commit(ctx); !errors.Is(err, domainreservation.ErrPromoAlreadyApplied) {
		t.Fatalf("same reservation err = %v", err)
	}

	used, err := view(t, s).Usages().ExistsForCustomer(ctx, "promo-welcome10", "alice")
	if err != nil || !used {
		t.Fatalf("usage not committed: %v", err)
	}
}

func TestOutboxRecordsBecomeVisibleOnCommit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	unit := begin(t, s)
	execCtx := uow.ContextWithUnitOfWork(ctx, unit)
	if err := s.Outbox().Add(execCtx, appoutbox.EventRecord{ID: "e1", Name: "reservation.created", OccurredAt: testNow}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.Outbox().Pending() != 0 {
		t.Fatal("staged record visible before commit")
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	msg, err := s.Outbox().Claim(ctx, "w1")
	if err != nil || msg == nil || msg.ID != "e1" {
		t.Fatalf("claim = %+v, %v", msg, err)
	}
	if again, _ := s.Outbox().Claim(ctx, "w2"); again != nil {
		t.Fatal("claimed record handed out twice")
	}
	if err := s.Outbox().MarkFailed(ctx, "e1", time.Now().Add(-time.Second), "broker down"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	retry, _ := s.Outbox().Claim(ctx, "w1")
	if retry == nil || retry.Attempts != 1 {
		t.Fatalf("retry = %+v", retry)
	}
	_ = s.Outbox().MarkSent(ctx, "e1")
	if s.Outbox().Pending() != 0 {
		t.Fatal("sent record still pending")
	}

	rolled := begin(t, s)
	_ = s.Outbox().Add(uow.ContextWithUnitOfWork(ctx, rolled), appoutbox.EventRecord{ID: "e2"})
	_ = rolled.Rollback(ctx)
	if len(s.Outbox().Records()) != 1 {
		t.Fatal("rolled back record was published")
	}
}

func TestCacheExpiresEntries(t *testing.T) {
	c := NewCache()
	now := testNow
	c.now = func() time.Time { return now }
	ctx := context.Background()
	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if v, ok, _ := c.Get(ctx, "k"); !ok || string(v) != "v" {
		t.Fatalf("get = %q %v", v, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expired entry returned")
	}
}

func TestInboxDedupes(t *testing.T) {
	in := NewInbox()
	ctx := context.Background()
	if seen, _ := in.Seen(ctx, "e1"); seen {
		t.Fatal("first delivery reported as seen")
	}
	if seen, _ := in.Seen(ctx, "e1"); !seen {
		t.Fatal("redelivery not detected")
	}
}
