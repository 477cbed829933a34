package dto

import (
	"time"

	domainavailability "hotelres/internal/domain/availability"
)

type Availability struct {
	RoomID    string `json:"room_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
	// BlockingReservationID names the first reservation holding any of the nights.
	BlockingReservationID string `json:"blocking_reservation_id,omitempty"`
}

type CalendarBlock struct {
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	ReservationID string `json:"reservation_id"`
}

type Calendar struct {
	RoomID string          `json:"room_id"`
	Blocks []CalendarBlock `json:"blocks"`
}

func MapCalendar(roomID string, blocks []domainavailability.Block) Calendar {
	out := Calendar{RoomID: roomID, Blocks: make([]CalendarBlock, 0, len(blocks))}
	for _, b := range blocks {
		out.Blocks = append(out.Blocks, CalendarBlock{
			CheckIn:       b.Range.CheckIn.Format(time.DateOnly),
			CheckOut:      b.Range.CheckOut.Format(time.DateOnly),
			ReservationID: b.Reference,
		})
	}
	return out
}
