package availability

import (
	"time"

	"hotelres/internal/domain/shared/daterange"
)

type CalendarBlocked struct {
	RoomID    string
	Range     daterange.DateRange
	Reference string
	At        time.Time
}

func (e CalendarBlocked) EventName() string     { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string   { return e.RoomID }
func (e CalendarBlocked) OccurredAt() time.Time { return e.At }

type CalendarReleased struct {
	RoomID    string
	Range     daterange.DateRange
	Reference string
	At        time.Time
}

func (e CalendarReleased) EventName() string     { return "calendar.released" }
func (e CalendarReleased) AggregateID() string   { return e.RoomID }
func (e CalendarReleased) OccurredAt() time.Time { return e.At }

type CalendarOverbookingPrevented struct {
	RoomID string
	Range  daterange.DateRange
	At     time.Time
}

func (e CalendarOverbookingPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e CalendarOverbookingPrevented) AggregateID() string   { return e.RoomID }
func (e CalendarOverbookingPrevented) OccurredAt() time.Time { return e.At }
