package ginserver

import (
	"bytes"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/dto"
	reservationapp "hotelres/internal/app/handlers/reservations"
	"hotelres/internal/app/queries"
	"hotelres/internal/domain/shared/daterange"
)

const (
	idempotencyHeader = "Idempotency-Key"
	defaultQRSize     = 256
)

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createReservationRequest struct {
	RoomID          string `json:"room_id"`
	CustomerID      string `json:"customer_id"`
	ContactEmail    string `json:"contact_email"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Guests          int    `json:"guests"`
	PromoCode       string `json:"promo_code"`
	SpecialRequests string `json:"special_requests"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	checkIn, checkOut, ok := parseStay(c, req.CheckIn, req.CheckOut)
	if !ok {
		return
	}
	guests := req.Guests
	if guests == 0 {
		guests = 1
	}
	cmd := reservationapp.CreateReservationCommand{
		RoomID:          req.RoomID,
		CustomerID:      req.CustomerID,
		ContactEmail:    req.ContactEmail,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          guests,
		PromoCode:       req.PromoCode,
		SpecialRequests: req.SpecialRequests,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[reservationapp.CreateReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReservationHandler) Get(c *gin.Context) {
	h.one(c, reservationapp.GetReservationQuery{ID: c.Param("id")})
}

func (h ReservationHandler) ByReference(c *gin.Context) {
	query := reservationapp.GetReservationByReferenceQuery{Reference: c.Param("ref")}
	result, err := queries.Ask[reservationapp.GetReservationByReferenceQuery, *dto.Reservation](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) one(c *gin.Context, query reservationapp.GetReservationQuery) {
	result, err := queries.Ask[reservationapp.GetReservationQuery, *dto.Reservation](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) List(c *gin.Context) {
	query := reservationapp.ListReservationsQuery{
		CustomerID: c.Query("customer_id"),
		RoomID:     c.Query("room_id"),
		State:      c.Query("status"),
	}
	result, err := queries.Ask[reservationapp.ListReservationsQuery, *dto.ReservationCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Arrivals(c *gin.Context) {
	date, ok := optionalDay(c)
	if !ok {
		return
	}
	result, err := queries.Ask[reservationapp.ArrivalsQuery, *dto.ReservationCollection](c.Request.Context(), h.Queries, reservationapp.ArrivalsQuery{Date: date})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Departures(c *gin.Context) {
	date, ok := optionalDay(c)
	if !ok {
		return
	}
	result, err := queries.Ask[reservationapp.DeparturesQuery, *dto.ReservationCollection](c.Request.Context(), h.Queries, reservationapp.DeparturesQuery{Date: date})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	cmd := reservationapp.CancelReservationCommand{ReservationID: c.Param("id"), Reason: req.Reason}
	h.dispatchReservation(c, func() (*dto.Reservation, error) {
		return commands.Dispatch[reservationapp.CancelReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	})
}

type transitionRequest struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

func (h ReservationHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := reservationapp.TransitionReservationCommand{ReservationID: c.Param("id"), Target: req.Target, Reason: req.Reason}
	h.dispatchReservation(c, func() (*dto.Reservation, error) {
		return commands.Dispatch[reservationapp.TransitionReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	})
}

func (h ReservationHandler) ConfirmPayment(c *gin.Context) {
	cmd := reservationapp.ConfirmPaymentCommand{ReservationID: c.Param("id")}
	h.dispatchReservation(c, func() (*dto.Reservation, error) {
		return commands.Dispatch[reservationapp.ConfirmPaymentCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	})
}

type applyPromoRequest struct {
	Code       string `json:"code"`
	CustomerID string `json:"customer_id"`
}

func (h ReservationHandler) ApplyPromo(c *gin.Context) {
	var req applyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := reservationapp.ApplyPromoCodeCommand{
		ReservationID:   c.Param("id"),
		Code:            req.Code,
		CustomerID:      req.CustomerID,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	h.dispatchReservation(c, func() (*dto.Reservation, error) {
		return commands.Dispatch[reservationapp.ApplyPromoCodeCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	})
}

type updateNotesRequest struct {
	SpecialRequests *string `json:"special_requests"`
	CustomerNotes   *string `json:"customer_notes"`
	AdminNotes      *string `json:"admin_notes"`
}

func (h ReservationHandler) UpdateNotes(c *gin.Context) {
	var req updateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := reservationapp.UpdateNotesCommand{
		ReservationID:   c.Param("id"),
		SpecialRequests: req.SpecialRequests,
		CustomerNotes:   req.CustomerNotes,
		AdminNotes:      req.AdminNotes,
	}
	h.dispatchReservation(c, func() (*dto.Reservation, error) {
		return commands.Dispatch[reservationapp.UpdateNotesCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	})
}

// QRCode renders the reservation reference as a PNG for check-in desks.
func (h ReservationHandler) QRCode(c *gin.Context) {
	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 64 || v > 1024 {
			badRequest(c, "size must be between 64 and 1024")
			return
		}
		size = v
	}
	res, err := queries.Ask[reservationapp.GetReservationQuery, *dto.Reservation](c.Request.Context(), h.Queries, reservationapp.GetReservationQuery{ID: c.Param("id")})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	img, err := referenceQR(res.Reference, size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

func referenceQR(reference string, size int) ([]byte, error) {
	qr, err := qrcode.New(reference, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h ReservationHandler) dispatchReservation(c *gin.Context, run func() (*dto.Reservation, error)) {
	result, err := run()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func optionalDay(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Time{}, true
	}
	day, err := daterange.ParseDay(raw)
	if err != nil {
		badRequest(c, "invalid date "+raw)
		return time.Time{}, false
	}
	return day, true
}

var _ ReservationHTTP = ReservationHandler{}
