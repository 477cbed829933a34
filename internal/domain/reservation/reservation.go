package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotelres/internal/domain/availability"
	"hotelres/internal/domain/pricing"
	"hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/events"
	"hotelres/internal/domain/shared/money"
)

var (
	ErrReservationNotFound    = errors.New("reservation: not found")
	ErrInvalidStateTransition = errors.New("reservation: invalid state transition")
	ErrRoomUnavailable        = errors.New("reservation: room unavailable for the requested dates")
	ErrCheckInInPast          = errors.New("reservation: check-in date cannot be in the past")
	ErrCheckInTooEarly        = errors.New("reservation: check-in date has not been reached")
	ErrInvalidGuests          = errors.New("reservation: guests count must be positive")
	ErrCustomerRequired       = errors.New("reservation: customer id required")
	ErrPromoAlreadyApplied    = errors.New("reservation: promo code already applied")
	ErrReservationClosed      = errors.New("reservation: reservation no longer accepts changes")
	ErrDuplicateReference     = errors.New("reservation: duplicate reference")
	ErrCalendarRequired       = errors.New("reservation: room calendar required for transition")
)

type ReservationID string

type Notes struct {
	SpecialRequests string
	Customer        string
	Admin           string
}

type Reservation struct {
	ID                 ReservationID
	Reference          string
	RoomID             rooms.RoomID
	CustomerID         string
	ContactEmail       string
	Range              daterange.DateRange
	Guests             int
	Price              pricing.Breakdown
	PromoCode          string
	Original           money.Money
	Discount           money.Money
	Total              money.Money
	State              State
	PaymentStatus      PaymentStatus
	Notes              Notes
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CancelledAt        *time.Time
	CheckedInAt        *time.Time
	CheckedOutAt       *time.Time
	Version            int64
	events.EventRecorder
}

// Filter narrows repository listings; zero fields match everything.
type Filter struct {
	CustomerID    string
	RoomID        rooms.RoomID
	States        []State
	CheckInOn     time.Time
	CheckOutOn    time.Time
	CheckInBefore time.Time
}

// Matches reports whether r satisfies every set field of f.
func (f Filter) Matches(r *Reservation) bool {
	if f.CustomerID != "" && r.CustomerID != f.CustomerID {
		return false
	}
	if f.RoomID != "" && r.RoomID != f.RoomID {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if r.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.CheckInOn.IsZero() && !r.Range.CheckIn.Equal(daterange.Day(f.CheckInOn)) {
		return false
	}
	if !f.CheckOutOn.IsZero() && !r.Range.CheckOut.Equal(daterange.Day(f.CheckOutOn)) {
		return false
	}
	if !f.CheckInBefore.IsZero() && !r.Range.CheckIn.Before(f.CheckInBefore) {
		return false
	}
	return true
}

type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	ByReference(ctx context.Context, reference string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
}

type CreateParams struct {
	ID           ReservationID
	Reference    string
	RoomID       rooms.RoomID
	CustomerID   string
	ContactEmail string
	Range        daterange.DateRange
	Guests       int
	Price        pricing.Breakdown
	Notes        Notes
	CreatedAt    time.Time
}

// New creates a PENDING reservation with no discount applied.
func New(p CreateParams) (*Reservation, error) {
	if p.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if strings.TrimSpace(p.CustomerID) == "" {
		return nil, ErrCustomerRequired
	}
	if err := p.Range.Validate(); err != nil {
		return nil, err
	}
	if p.Price.Nights != p.Range.Nights() || !p.Price.Consistent() {
		return nil, pricing.ErrInvalidStayDuration
	}
	now := p.CreatedAt.UTC()
	r := &Reservation{
		ID:            p.ID,
		Reference:     p.Reference,
		RoomID:        p.RoomID,
		CustomerID:    strings.TrimSpace(p.CustomerID),
		ContactEmail:  strings.TrimSpace(p.ContactEmail),
		Range:         p.Range,
		Guests:        p.Guests,
		Price:         p.Price,
		Original:      p.Price.Total,
		Discount:      money.Zero(p.Price.Total.Currency),
		Total:         p.Price.Total,
		State:         StatePending,
		PaymentStatus: PaymentPending,
		Notes:         p.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.Record(ReservationCreated{
		ReservationID: r.ID,
		Reference:     r.Reference,
		RoomID:        r.RoomID,
		CustomerID:    r.CustomerID,
		ContactEmail:  r.ContactEmail,
		Range:         r.Range,
		Guests:        r.Guests,
		Total:         r.Total,
		At:            now,
	})
	return r, nil
}

// ValidateStart rejects stays starting before today (UTC).
func ValidateStart(dr daterange.DateRange, now time.Time) error {
	if dr.CheckIn.Before(daterange.Day(now)) {
		return ErrCheckInInPast
	}
	return nil
}

// TransitionTo moves the reservation to target, keeping cal in step: entering a
// blocking state reserves the interval, leaving one releases it. On error nothing
// is mutated. cal may be nil only when neither side of the edge blocks.
func (r *Reservation) TransitionTo(target State, cal *availability.Calendar, reason string, now time.Time) error {
	from := r.State
	if !from.CanTransitionTo(target) {
		return ErrInvalidStateTransition
	}
	now = now.UTC()
	if target == StateCheckedIn && now.Before(r.Range.CheckIn) {
		return ErrCheckInTooEarly
	}
	needsCalendar := from.Blocking() != target.Blocking()
	if needsCalendar && (cal == nil || cal.RoomID != r.RoomID) {
		return ErrCalendarRequired
	}
	if target.Blocking() && !from.Blocking() {
		if err := cal.Reserve(r.Range, string(r.ID), now); err != nil {
			if errors.Is(err, availability.ErrOverlappingRange) {
				return fmt.Errorf("%w: %w", ErrRoomUnavailable, err)
			}
			return err
		}
	}
	if from.Blocking() && !target.Blocking() {
		if err := cal.Release(string(r.ID), now); err != nil && !errors.Is(err, availability.ErrRangeNotFound) {
			return err
		}
	}

	r.State = target
	r.UpdatedAt = now
	switch target {
	case StateCancelled:
		r.CancelledAt = &now
		r.CancellationReason = strings.TrimSpace(reason)
		if r.PaymentStatus == PaymentCompleted {
			r.PaymentStatus = PaymentRefunded
		} else {
			r.PaymentStatus = PaymentCancelled
		}
	case StateCheckedIn:
		r.CheckedInAt = &now
	case StateCheckedOut:
		r.CheckedOutAt = &now
		r.PaymentStatus = PaymentCompleted
	}
	r.Record(ReservationTransitioned{
		ReservationID: r.ID,
		Reference:     r.Reference,
		RoomID:        r.RoomID,
		CustomerID:    r.CustomerID,
		ContactEmail:  r.ContactEmail,
		From:          from,
		To:            target,
		Reason:        r.CancellationReason,
		At:            now,
	})
	return nil
}

func (r *Reservation) Confirm(cal *availability.Calendar, now time.Time) error {
	return r.TransitionTo(StateConfirmed, cal, "", now)
}

func (r *Reservation) Approve(cal *availability.Calendar, now time.Time) error {
	return r.TransitionTo(StateApproved, cal, "", now)
}

func (r *Reservation) Cancel(cal *availability.Calendar, reason string, now time.Time) error {
	return r.TransitionTo(StateCancelled, cal, reason, now)
}

func (r *Reservation) CheckIn(cal *availability.Calendar, now time.Time) error {
	return r.TransitionTo(StateCheckedIn, cal, "", now)
}

func (r *Reservation) CheckOut(cal *availability.Calendar, now time.Time) error {
	return r.TransitionTo(StateCheckedOut, cal, "", now)
}

func (r *Reservation) Complete(now time.Time) error {
	return r.TransitionTo(StateCompleted, nil, "", now)
}

func (r *Reservation) MarkNoShow(cal *availability.Calendar, now time.Time) error {
	return r.TransitionTo(StateNoShow, cal, "", now)
}

// MarkPaid records an opaque payment confirmation.
func (r *Reservation) MarkPaid(now time.Time) {
	r.PaymentStatus = PaymentCompleted
	r.UpdatedAt = now.UTC()
}

// ApplyDiscount reduces the total by discount. A reservation carries at most one promo code.
func (r *Reservation) ApplyDiscount(code string, discount money.Money, now time.Time) error {
	if r.PromoCode != "" {
		return ErrPromoAlreadyApplied
	}
	if r.State.Terminal() || r.State == StateCheckedOut {
		return ErrReservationClosed
	}
	if discount.IsNegative() {
		return errors.New("reservation: discount cannot be negative")
	}
	discount = r.Original.Min(discount)
	total, err := r.Original.Sub(discount)
	if err != nil {
		return err
	}
	r.PromoCode = code
	r.Discount = discount
	r.Total = total
	r.UpdatedAt = now.UTC()
	r.Record(ReservationPromoApplied{
		ReservationID: r.ID,
		Reference:     r.Reference,
		Code:          code,
		Discount:      discount,
		Total:         total,
		At:            r.UpdatedAt,
	})
	return nil
}

// UpdateNotes replaces the free-text notes; the room, dates and guests stay fixed.
func (r *Reservation) UpdateNotes(notes Notes, now time.Time) {
	r.Notes = notes
	r.UpdatedAt = now.UTC()
}

func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	c := &Reservation{
		ID:                 r.ID,
		Reference:          r.Reference,
		RoomID:             r.RoomID,
		CustomerID:         r.CustomerID,
		ContactEmail:       r.ContactEmail,
		Range:              r.Range,
		Guests:             r.Guests,
		Price:              r.Price,
		PromoCode:          r.PromoCode,
		Original:           r.Original,
		Discount:           r.Discount,
		Total:              r.Total,
		State:              r.State,
		PaymentStatus:      r.PaymentStatus,
		Notes:              r.Notes,
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		CancelledAt:        copyTime(r.CancelledAt),
		CheckedInAt:        copyTime(r.CheckedInAt),
		CheckedOutAt:       copyTime(r.CheckedOutAt),
		Version:            r.Version,
	}
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
