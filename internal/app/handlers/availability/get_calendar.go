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

const getCalendarKey = "availability.calendar"

// GetCalendarQuery lists blocked intervals of a room. Zero From/To return every block.
type GetCalendarQuery struct {
	RoomID string `json:"room_id" validate:"required"`
	From   time.Time
	To     time.Time
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (*dto.Calendar, error) {
	var window domainrange.DateRange
	if !q.From.IsZero() || !q.To.IsZero() {
		var err error
		window, err = domainrange.New(q.From, q.To)
		if err != nil {
			return nil, err
		}
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
	out := dto.MapCalendar(q.RoomID, calendar.Between(window))
	return &out, nil
}

var _ queries.Handler[GetCalendarQuery, *dto.Calendar] = (*GetCalendarHandler)(nil)
