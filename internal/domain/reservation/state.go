package reservation

type State string

const (
	StatePending        State = "PENDING"
	StatePendingPayment State = "PENDING_PAYMENT"
	StateConfirmed      State = "CONFIRMED"
	StateApproved       State = "APPROVED"
	StateCheckedIn      State = "CHECKED_IN"
	StateCheckedOut     State = "CHECKED_OUT"
	StateCompleted      State = "COMPLETED"
	StateCancelled      State = "CANCELLED"
	StateNoShow         State = "NO_SHOW"
)

var transitions = map[State][]State{
	StatePending:        {StateConfirmed, StateApproved, StateCancelled, StatePendingPayment},
	StatePendingPayment: {StateConfirmed, StateCancelled},
	StateConfirmed:      {StateCheckedIn, StateCancelled, StateNoShow},
	StateApproved:       {StateCheckedIn, StateCancelled, StateNoShow},
	StateCheckedIn:      {StateCheckedOut},
	StateCheckedOut:     {StateCompleted},
}

// BlockingStates hold the room for their date range.
var BlockingStates = []State{StateConfirmed, StateApproved, StateCheckedIn}

func (s State) Blocking() bool {
	switch s {
	case StateConfirmed, StateApproved, StateCheckedIn:
		return true
	}
	return false
}

func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s State) CanTransitionTo(target State) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s State) Valid() bool {
	switch s {
	case StatePending, StatePendingPayment, StateConfirmed, StateApproved, StateCheckedIn,
		StateCheckedOut, StateCompleted, StateCancelled, StateNoShow:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)
