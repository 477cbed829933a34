package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/events"
)

var (
	ErrOverlappingRange = errors.New("availability: range overlaps with an existing block")
	ErrRangeNotFound    = errors.New("availability: range not found")
)

// Block is one night interval held by a blocking reservation.
type Block struct {
	Range     daterange.DateRange
	Reference string
	CreatedAt time.Time
}

// Calendar is the per-room overlap index. Version guards concurrent writers.
type Calendar struct {
	RoomID  rooms.RoomID
	Blocks  []Block
	Version int64
	events.EventRecorder
}

// Repository loads calendars by room. A room with no blocks yet yields an empty
// calendar at version 0, never an error.
type Repository interface {
	Calendar(ctx context.Context, id rooms.RoomID) (*Calendar, error)
	Save(ctx context.Context, calendar *Calendar) error
}

func NewCalendar(id rooms.RoomID) *Calendar {
	return &Calendar{RoomID: id}
}

func (c *Calendar) CanReserve(r daterange.DateRange) bool {
	_, found := c.conflict(r, "")
	return !found
}

// Conflicting returns the reference of the first block overlapping r.
func (c *Calendar) Conflicting(r daterange.DateRange) (string, bool) {
	block, found := c.conflict(r, "")
	return block.Reference, found
}

func (c *Calendar) conflict(r daterange.DateRange, ignore string) (Block, bool) {
	for _, block := range c.Blocks {
		if block.Reference == ignore {
			continue
		}
		if block.Range.Overlaps(r) {
			return block, true
		}
	}
	return Block{}, false
}

// Reserve holds r for reference. Re-reserving the same reference and range is a no-op.
func (c *Calendar) Reserve(r daterange.DateRange, reference string, now time.Time) error {
	if existing, ok := c.Holds(reference); ok && existing == r {
		return nil
	}
	if _, found := c.conflict(r, reference); found {
		c.Record(CalendarOverbookingPrevented{RoomID: string(c.RoomID), Range: r, At: now.UTC()})
		return ErrOverlappingRange
	}
	c.Blocks = append(c.Blocks, Block{Range: r, Reference: reference, CreatedAt: now.UTC()})
	sort.SliceStable(c.Blocks, func(i, j int) bool {
		return c.Blocks[i].Range.CheckIn.Before(c.Blocks[j].Range.CheckIn)
	})
	c.Record(CalendarBlocked{RoomID: string(c.RoomID), Range: r, Reference: reference, At: now.UTC()})
	return nil
}

func (c *Calendar) Release(reference string, now time.Time) error {
	idx := -1
	for i, block := range c.Blocks {
		if block.Reference == reference {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrRangeNotFound
	}
	removed := c.Blocks[idx]
	c.Blocks = append(c.Blocks[:idx], c.Blocks[idx+1:]...)
	c.Record(CalendarReleased{RoomID: string(c.RoomID), Range: removed.Range, Reference: reference, At: now.UTC()})
	return nil
}

// Holds returns the range held for reference, if any.
func (c *Calendar) Holds(reference string) (daterange.DateRange, bool) {
	for _, block := range c.Blocks {
		if block.Reference == reference {
			return block.Range, true
		}
	}
	return daterange.DateRange{}, false
}

// Between returns blocks intersecting window, ordered by check-in.
func (c *Calendar) Between(window daterange.DateRange) []Block {
	out := make([]Block, 0, len(c.Blocks))
	for _, block := range c.Blocks {
		if window.CheckIn.IsZero() || block.Range.Overlaps(window) {
			out = append(out, block)
		}
	}
	return out
}

func (c *Calendar) Clone() *Calendar {
	if c == nil {
		return nil
	}
	return &Calendar{
		RoomID:  c.RoomID,
		Blocks:  append([]Block(nil), c.Blocks...),
		Version: c.Version,
	}
}
