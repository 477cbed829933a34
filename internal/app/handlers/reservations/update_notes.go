package reservations

import (
	"context"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/dto"
	handlersupport "hotelres/internal/app/handlers/support"
	"hotelres/internal/app/uow"
	domainreservation "hotelres/internal/domain/reservation"
)

const updateNotesKey = "reservations.update_notes"

// UpdateNotesCommand replaces the notes that are set; nil fields keep their value.
type UpdateNotesCommand struct {
	ReservationID   string  `json:"reservation_id" validate:"required"`
	SpecialRequests *string `json:"special_requests" validate:"omitempty,max=2000"`
	CustomerNotes   *string `json:"customer_notes" validate:"omitempty,max=2000"`
	AdminNotes      *string `json:"admin_notes" validate:"omitempty,max=2000"`
}

func (c UpdateNotesCommand) Key() string { return updateNotesKey }

type UpdateNotesHandler struct {
	*Lifecycle
}

func (h *UpdateNotesHandler) Handle(ctx context.Context, cmd UpdateNotesCommand) (*dto.Reservation, error) {
	var out dto.Reservation
	err := handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := unit.Reservations().ByID(ctx, domainreservation.ReservationID(cmd.ReservationID))
		if err != nil {
			return err
		}
		notes := res.Notes
		if cmd.SpecialRequests != nil {
			notes.SpecialRequests = *cmd.SpecialRequests
		}
		if cmd.CustomerNotes != nil {
			notes.Customer = *cmd.CustomerNotes
		}
		if cmd.AdminNotes != nil {
			notes.Admin = *cmd.AdminNotes
		}
		res.UpdateNotes(notes, h.now())
		if err := unit.Reservations().Save(ctx, res); err != nil {
			return err
		}
		out = dto.MapReservation(res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

var _ commands.Handler[UpdateNotesCommand, *dto.Reservation] = (*UpdateNotesHandler)(nil)
