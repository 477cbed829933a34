package reservations

import (
	"context"
	"sort"
	"time"

	"hotelres/internal/app/commands"
	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/uow"
	domainreservation "hotelres/internal/domain/reservation"
	domainrange "hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/events"
)

const sweepReservationsKey = "reservations.sweep"

// CompletionDelay is how long a checked-out stay waits before it is completed.
const CompletionDelay = 24 * time.Hour

// SweepReservationsCommand closes stale reservations: blocking stays whose
// check-in day has passed become NO_SHOW and old check-outs become COMPLETED.
type SweepReservationsCommand struct{}

func (c SweepReservationsCommand) Key() string { return sweepReservationsKey }

type SweepResult struct {
	NoShows   int `json:"no_shows"`
	Completed int `json:"completed"`
}

type SweepReservationsHandler struct {
	*Lifecycle
}

func (h *SweepReservationsHandler) Handle(ctx context.Context, _ SweepReservationsCommand) (*SweepResult, error) {
	out := &SweepResult{}
	err := handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		*out = SweepResult{}
		now := h.now()
		stale, err := unit.Reservations().List(ctx, domainreservation.Filter{
			States:        []domainreservation.State{domainreservation.StateConfirmed, domainreservation.StateApproved},
			CheckInBefore: domainrange.Day(now),
		})
		if err != nil {
			return err
		}
		// Room order keeps calendar locks acquired in one global order.
		sort.SliceStable(stale, func(i, j int) bool { return stale[i].RoomID < stale[j].RoomID })
		var evs []events.DomainEvent
		for _, res := range stale {
			batch, err := h.transition(ctx, unit, res, domainreservation.StateNoShow, "", now)
			if err != nil {
				return err
			}
			evs = append(evs, batch...)
			out.NoShows++
		}
		departed, err := unit.Reservations().List(ctx, domainreservation.Filter{
			States: []domainreservation.State{domainreservation.StateCheckedOut},
		})
		if err != nil {
			return err
		}
		for _, res := range departed {
			if res.CheckedOutAt == nil || now.Sub(*res.CheckedOutAt) < CompletionDelay {
				continue
			}
			batch, err := h.transition(ctx, unit, res, domainreservation.StateCompleted, "", now)
			if err != nil {
				return err
			}
			evs = append(evs, batch...)
			out.Completed++
		}
		return h.record(ctx, evs)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ commands.Handler[SweepReservationsCommand, *SweepResult] = (*SweepReservationsHandler)(nil)
