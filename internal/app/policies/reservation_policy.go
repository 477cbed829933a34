package policies

import (
	"errors"
	"strings"

	domainreservation "hotelres/internal/domain/reservation"
)

var ErrUnsupportedInitialState = errors.New("policies: initial reservation state must be PENDING, PENDING_PAYMENT, CONFIRMED or APPROVED")

// ReservationPolicy captures the operator choices that shape the lifecycle.
type ReservationPolicy struct {
	// InitialState is where a successful CreateReservation lands.
	InitialState domainreservation.State
	// RestorePromoOnCancel gives a promotion use back when its reservation is cancelled.
	RestorePromoOnCancel bool
}

func DefaultReservationPolicy() ReservationPolicy {
	return ReservationPolicy{InitialState: domainreservation.StateConfirmed}
}

// ParseInitialState accepts the states a new reservation may start in.
func ParseInitialState(raw string) (domainreservation.State, error) {
	s := domainreservation.State(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case "":
		return domainreservation.StateConfirmed, nil
	case domainreservation.StatePending, domainreservation.StatePendingPayment,
		domainreservation.StateConfirmed, domainreservation.StateApproved:
		return s, nil
	}
	return "", ErrUnsupportedInitialState
}
