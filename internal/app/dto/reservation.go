package dto

import (
	"time"

	domainpricing "hotelres/internal/domain/pricing"
	domainreservation "hotelres/internal/domain/reservation"
	"hotelres/internal/domain/shared/money"
)

type PriceBreakdown struct {
	Nights        int    `json:"nights"`
	NightlyRate   string `json:"nightly_rate"`
	Subtotal      string `json:"subtotal"`
	ServiceCharge string `json:"service_charge"`
	Tax           string `json:"tax"`
	Total         string `json:"total"`
	Currency      string `json:"currency"`
}

type Reservation struct {
	ID                 string         `json:"id"`
	Reference          string         `json:"reference"`
	RoomID             string         `json:"room_id"`
	CustomerID         string         `json:"customer_id"`
	ContactEmail       string         `json:"contact_email,omitempty"`
	CheckIn            string         `json:"check_in"`
	CheckOut           string         `json:"check_out"`
	Guests             int            `json:"guests"`
	Price              PriceBreakdown `json:"price"`
	PromoCode          string         `json:"promo_code,omitempty"`
	Original           string         `json:"original_amount"`
	Discount           string         `json:"discount_amount"`
	Total              string         `json:"total_amount"`
	Currency           string         `json:"currency"`
	State              string         `json:"state"`
	PaymentStatus      string         `json:"payment_status"`
	SpecialRequests    string         `json:"special_requests,omitempty"`
	CustomerNotes      string         `json:"customer_notes,omitempty"`
	AdminNotes         string         `json:"admin_notes,omitempty"`
	CancellationReason string         `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	CheckedInAt        *time.Time     `json:"checked_in_at,omitempty"`
	CheckedOutAt       *time.Time     `json:"checked_out_at,omitempty"`
}

type ReservationCollection struct {
	Items []Reservation `json:"items"`
	Total int           `json:"total"`
}

func Amount(m money.Money) string {
	return m.Amount.StringFixed(2)
}

func MapPrice(b domainpricing.Breakdown) PriceBreakdown {
	return PriceBreakdown{
		Nights:        b.Nights,
		NightlyRate:   Amount(b.Nightly),
		Subtotal:      Amount(b.Subtotal),
		ServiceCharge: Amount(b.ServiceCharge),
		Tax:           Amount(b.Tax),
		Total:         Amount(b.Total),
		Currency:      b.Total.Currency,
	}
}

func MapReservation(r *domainreservation.Reservation) Reservation {
	return Reservation{
		ID:                 string(r.ID),
		Reference:          r.Reference,
		RoomID:             string(r.RoomID),
		CustomerID:         r.CustomerID,
		ContactEmail:       r.ContactEmail,
		CheckIn:            r.Range.CheckIn.Format(time.DateOnly),
		CheckOut:           r.Range.CheckOut.Format(time.DateOnly),
		Guests:             r.Guests,
		Price:              MapPrice(r.Price),
		PromoCode:          r.PromoCode,
		Original:           Amount(r.Original),
		Discount:           Amount(r.Discount),
		Total:              Amount(r.Total),
		Currency:           r.Total.Currency,
		State:              string(r.State),
		PaymentStatus:      string(r.PaymentStatus),
		SpecialRequests:    r.Notes.SpecialRequests,
		CustomerNotes:      r.Notes.Customer,
		AdminNotes:         r.Notes.Admin,
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		CancelledAt:        r.CancelledAt,
		CheckedInAt:        r.CheckedInAt,
		CheckedOutAt:       r.CheckedOutAt,
	}
}

func MapReservations(items []*domainreservation.Reservation) ReservationCollection {
	out := ReservationCollection{Items: make([]Reservation, 0, len(items)), Total: len(items)}
	for _, r := range items {
		out.Items = append(out.Items, MapReservation(r))
	}
	return out
}
