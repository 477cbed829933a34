package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [checkIn, checkOut) of calendar days in UTC.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New normalizes both bounds to UTC midnight and validates the range.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Day truncates t to the start of its UTC calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay accepts either YYYY-MM-DD or RFC3339.
func ParseDay(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn) / day)
}

// Overlaps reports whether the two stays share at least one night.
// Back-to-back stays (one checks out the day the other checks in) do not overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) String() string {
	return dr.CheckIn.Format(time.DateOnly) + "/" + dr.CheckOut.Format(time.DateOnly)
}
