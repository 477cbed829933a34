package availability

import (
	"context"
	"time"

	"hotelres/internal/app/dto"
	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/queries"
	"hotelres/internal/app/uow"
	domainrooms "hotelres/internal/domain/rooms"
	domainrange "hotelres/internal/domain/shared/daterange"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	RoomID   string    `json:"room_id" validate:"required"`
	CheckIn  time.Time `json:"check_in" validate:"required"`
	CheckOut time.Time `json:"check_out" validate:"required"`
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

func (q CheckAvailabilityQuery) CacheKey() string {
	return q.RoomID + "|" + q.CheckIn.UTC().Format(time.DateOnly) + "|" + q.CheckOut.UTC().Format(time.DateOnly)
}

func (q CheckAvailabilityQuery) ResultPrototype() any { return &dto.Availability{} }

// CheckAvailabilityHandler answers whether a room has no blocking reservation
// intersecting the requested nights.
type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (*dto.Availability, error) {
	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	roomID := domainrooms.RoomID(q.RoomID)
	if _, err := unit.Rooms().ByID(execCtx, roomID); err != nil {
		return nil, err
	}
	calendar, err := unit.Calendars().Calendar(execCtx, roomID)
	if err != nil {
		return nil, err
	}
	blocker, blocked := calendar.Conflicting(dr)
	return &dto.Availability{
		RoomID:                q.RoomID,
		CheckIn:               dr.CheckIn.Format(time.DateOnly),
		CheckOut:              dr.CheckOut.Format(time.DateOnly),
		Available:             !blocked,
		BlockingReservationID: blocker,
	}, nil
}

var (
	_ queries.Handler[CheckAvailabilityQuery, *dto.Availability] = (*CheckAvailabilityHandler)(nil)
	_ queries.Cacheable                                          = CheckAvailabilityQuery{}
)
