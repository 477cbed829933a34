package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	reservationapp "hotelres/internal/app/handlers/reservations"
	"hotelres/internal/app/middleware"
	"hotelres/internal/app/uow"
	domainavailability "hotelres/internal/domain/availability"
	domainpricing "hotelres/internal/domain/pricing"
	domainpromotion "hotelres/internal/domain/promotion"
	domainreservation "hotelres/internal/domain/reservation"
	domainrooms "hotelres/internal/domain/rooms"
	"hotelres/internal/domain/shared/daterange"
	"hotelres/internal/domain/shared/money"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, middleware.ErrValidation),
		errors.Is(err, reservationapp.ErrUnknownState),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrInvalidCurrency):
		return http.StatusBadRequest
	case errors.Is(err, reservationapp.ErrCustomerMismatch):
		return http.StatusForbidden
	case errors.Is(err, domainrooms.ErrRoomNotFound),
		errors.Is(err, domainreservation.ErrReservationNotFound),
		errors.Is(err, domainpromotion.ErrPromotionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainreservation.ErrRoomUnavailable),
		errors.Is(err, domainavailability.ErrOverlappingRange),
		errors.Is(err, domainreservation.ErrInvalidStateTransition),
		errors.Is(err, domainreservation.ErrPromoAlreadyApplied),
		errors.Is(err, domainreservation.ErrReservationClosed),
		errors.Is(err, domainreservation.ErrDuplicateReference),
		errors.Is(err, uow.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, domainpricing.ErrInvalidStayDuration),
		errors.Is(err, domainreservation.ErrCheckInInPast),
		errors.Is(err, domainreservation.ErrCheckInTooEarly),
		errors.Is(err, domainreservation.ErrInvalidGuests),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, domainrooms.ErrCapacityExceeded),
		errors.Is(err, domainpromotion.ErrInvalid):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if reason, ok := domainpromotion.ReasonOf(err); ok {
		body["reason"] = string(reason)
	}
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "request_id", c.GetString("request_id"), "error", err)
		}
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
