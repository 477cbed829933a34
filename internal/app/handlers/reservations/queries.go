package reservations

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"hotelres/internal/app/dto"
	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/uow"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
	domainrange "hotelres/internal/domain/shared/daterange"
)

const (
	getReservationKey            = "reservations.get"
	getReservationByReferenceKey = "reservations.by_reference"
	listReservationsKey          = "reservations.list"
	arrivalsKey                  = "reservations.arrivals"
	departuresKey                = "reservations.departures"
)

var ErrUnknownState = errors.New("reservations: unknown reservation state")

type GetReservationQuery struct {
	ID string `json:"id" validate:"required"`
}

func (q GetReservationQuery) Key() string { return getReservationKey }

type GetReservationByReferenceQuery struct {
	Reference string `json:"reference" validate:"required"`
}

func (q GetReservationByReferenceQuery) Key() string { return getReservationByReferenceKey }

// ListReservationsQuery filters by customer, room and state; empty fields match all.
type ListReservationsQuery struct {
	CustomerID string `json:"customer_id"`
	RoomID     string `json:"room_id"`
	State      string `json:"state"`
}

func (q ListReservationsQuery) Key() string { return listReservationsKey }

// ArrivalsQuery lists blocking reservations checking in on Date.
type ArrivalsQuery struct {
	Date time.Time
}

func (q ArrivalsQuery) Key() string { return arrivalsKey }

// DeparturesQuery lists guests in house checking out on Date.
type DeparturesQuery struct {
	Date time.Time
}

func (q DeparturesQuery) Key() string { return departuresKey }

type QueryHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
}

func (h *QueryHandler) Get(ctx context.Context, q GetReservationQuery) (*dto.Reservation, error) {
	return h.one(ctx, func(ctx context.Context, repo domainreservation.Repository) (*domainreservation.Reservation, error) {
		return repo.ByID(ctx, domainreservation.ReservationID(q.ID))
	})
}

func (h *QueryHandler) ByReference(ctx context.Context, q GetReservationByReferenceQuery) (*dto.Reservation, error) {
	return h.one(ctx, func(ctx context.Context, repo domainreservation.Repository) (*domainreservation.Reservation, error) {
		return repo.ByReference(ctx, strings.ToUpper(strings.TrimSpace(q.Reference)))
	})
}

func (h *QueryHandler) List(ctx context.Context, q ListReservationsQuery) (*dto.ReservationCollection, error) {
	filter := domainreservation.Filter{
		CustomerID: strings.TrimSpace(q.CustomerID),
		RoomID:     domainrooms.RoomID(strings.TrimSpace(q.RoomID)),
	}
	if raw := strings.TrimSpace(q.State); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			state := domainreservation.State(strings.ToUpper(strings.TrimSpace(part)))
			if !state.Valid() {
				return nil, ErrUnknownState
			}
			filter.States = append(filter.States, state)
		}
	}
	return h.many(ctx, filter)
}

func (h *QueryHandler) Arrivals(ctx context.Context, q ArrivalsQuery) (*dto.ReservationCollection, error) {
	return h.many(ctx, domainreservation.Filter{
		States:    append([]domainreservation.State(nil), domainreservation.BlockingStates...),
		CheckInOn: h.day(q.Date),
	})
}

func (h *QueryHandler) Departures(ctx context.Context, q DeparturesQuery) (*dto.ReservationCollection, error) {
	return h.many(ctx, domainreservation.Filter{
		States:     []domainreservation.State{domainreservation.StateCheckedIn},
		CheckOutOn: h.day(q.Date),
	})
}

func (h *QueryHandler) day(t time.Time) time.Time {
	if t.IsZero() {
		return domainrange.Day(handlersupport.Now(h.Clock))
	}
	return domainrange.Day(t)
}

func (h *QueryHandler) one(ctx context.Context, load func(context.Context, domainreservation.Repository) (*domainreservation.Reservation, error)) (*dto.Reservation, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	res, err := load(execCtx, unit.Reservations())
	if err != nil {
		return nil, err
	}
	out := dto.MapReservation(res)
	return &out, nil
}

func (h *QueryHandler) many(ctx context.Context, filter domainreservation.Filter) (*dto.ReservationCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Reservations().List(execCtx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Range.CheckIn.Equal(items[j].Range.CheckIn) {
			return items[i].Range.CheckIn.Before(items[j].Range.CheckIn)
		}
		return items[i].Reference < items[j].Reference
	})
	out := dto.MapReservations(items)
	return &out, nil
}
