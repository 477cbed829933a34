package promotion

import (
	"errors"
	"fmt"
)

// ErrInvalid matches every *InvalidError via errors.Is.
var ErrInvalid = errors.New("promotion: promo code invalid")

type Reason string

const (
	ReasonNotFound              Reason = "not-found"
	ReasonInactive              Reason = "inactive"
	ReasonNotYetActive          Reason = "not-yet-active"
	ReasonExpired               Reason = "expired"
	ReasonUsageExhausted        Reason = "usage-exhausted"
	ReasonBelowMinimum          Reason = "below-minimum"
	ReasonAlreadyUsedByCustomer Reason = "already-used-by-customer"
)

var reasonMessages = map[Reason]string{
	ReasonNotFound:              "promo code does not exist",
	ReasonInactive:              "promo code is not active",
	ReasonNotYetActive:          "promo code is not valid yet",
	ReasonExpired:               "promo code has expired",
	ReasonUsageExhausted:        "promo code usage limit reached",
	ReasonBelowMinimum:          "order amount is below the promo minimum",
	ReasonAlreadyUsedByCustomer: "promo code already used by this customer",
}

func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

type InvalidError struct {
	Reason Reason
}

func Invalid(reason Reason) *InvalidError {
	return &InvalidError{Reason: reason}
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("promotion: %s", e.Reason.Message())
}

func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var inv *InvalidError
	if errors.As(err, &inv) {
		return inv.Reason, true
	}
	return "", false
}
