package rooms

import (
	"context"
	"errors"
	"strings"

	"hotelres/internal/domain/shared/money"
)

var (
	ErrRoomNotFound       = errors.New("rooms: room not found")
	ErrCapacityExceeded   = errors.New("rooms: guests exceed room capacity")
	ErrInvalidRoom        = errors.New("rooms: invalid room definition")
	ErrInvalidNightlyRate = errors.New("rooms: nightly rate must be positive")
)

type RoomID string

type RoomType string

const (
	TypeStandard RoomType = "STANDARD"
	TypeDeluxe   RoomType = "DELUXE"
	TypeSuite    RoomType = "SUITE"
	TypeFamily   RoomType = "FAMILY"
)

// Status is informational only. Availability is decided by the room calendar.
type Status string

const (
	StatusAvailable    Status = "AVAILABLE"
	StatusOccupied     Status = "OCCUPIED"
	StatusMaintenance  Status = "MAINTENANCE"
	StatusOutOfService Status = "OUT_OF_SERVICE"
)

type Room struct {
	ID          RoomID
	Number      string
	Type        RoomType
	NightlyRate money.Money
	Capacity    int
	Status      Status
	Version     int64
}

type Repository interface {
	ByID(ctx context.Context, id RoomID) (*Room, error)
	List(ctx context.Context) ([]*Room, error)
	Save(ctx context.Context, room *Room) error
}

type CreateParams struct {
	ID          RoomID
	Number      string
	Type        RoomType
	NightlyRate money.Money
	Capacity    int
}

func NewRoom(p CreateParams) (*Room, error) {
	if p.ID == "" || strings.TrimSpace(p.Number) == "" || p.Capacity <= 0 {
		return nil, ErrInvalidRoom
	}
	if !p.NightlyRate.Amount.IsPositive() {
		return nil, ErrInvalidNightlyRate
	}
	roomType := p.Type
	if roomType == "" {
		roomType = TypeStandard
	}
	return &Room{
		ID:          p.ID,
		Number:      strings.TrimSpace(p.Number),
		Type:        RoomType(strings.ToUpper(string(roomType))),
		NightlyRate: p.NightlyRate,
		Capacity:    p.Capacity,
		Status:      StatusAvailable,
	}, nil
}

// Accommodates reports ErrCapacityExceeded when guests do not fit.
func (r *Room) Accommodates(guests int) error {
	if guests > r.Capacity {
		return ErrCapacityExceeded
	}
	return nil
}

func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
