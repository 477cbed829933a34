package reservation

import (
	"time"

	"hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/money"
)

type ReservationCreated struct {
	ReservationID ReservationID
	Reference     string
	RoomID        rooms.RoomID
	CustomerID    string
	ContactEmail  string
	Range         daterange.DateRange
	Guests        int
	Total         money.Money
	At            time.Time
}

func (e ReservationCreated) EventName() string     { return "reservation.created" }
func (e ReservationCreated) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCreated) OccurredAt() time.Time { return e.At }

type ReservationTransitioned struct {
	ReservationID ReservationID
	Reference     string
	RoomID        rooms.RoomID
	CustomerID    string
	ContactEmail  string
	From          State
	To            State
	Reason        string
	At            time.Time
}

func (e ReservationTransitioned) EventName() string     { return "reservation.transitioned" }
func (e ReservationTransitioned) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationTransitioned) OccurredAt() time.Time { return e.At }

type ReservationPromoApplied struct {
	ReservationID ReservationID
	Reference     string
	Code          string
	Discount      money.Money
	Total         money.Money
	At            time.Time
}

func (e ReservationPromoApplied) EventName() string     { return "reservation.promo_applied" }
func (e ReservationPromoApplied) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationPromoApplied) OccurredAt() time.Time { return e.At }
