package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"hotelres/internal/app/dto"
	availabilityapp "hotelres/internal/app/handlers/availability"
	"hotelres/internal/app/queries"
	"hotelres/internal/domain/shared/daterange"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	checkIn, checkOut, ok := parseStay(c, c.Query("check_in"), c.Query("check_out"))
	if !ok {
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{RoomID: c.Param("id"), CheckIn: checkIn, CheckOut: checkOut}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, *dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	query := availabilityapp.GetCalendarQuery{RoomID: c.Param("id")}
	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, ok := parseStay(c, c.Query("from"), c.Query("to"))
		if !ok {
			return
		}
		query.From, query.To = from, to
	}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, *dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseStay reads two day values; it writes a 400 and returns false on failure.
func parseStay(c *gin.Context, rawIn, rawOut string) (time.Time, time.Time, bool) {
	if rawIn == "" || rawOut == "" {
		badRequest(c, "check-in and check-out dates are required")
		return time.Time{}, time.Time{}, false
	}
	in, err := daterange.ParseDay(rawIn)
	if err != nil {
		badRequest(c, "invalid date "+rawIn)
		return time.Time{}, time.Time{}, false
	}
	out, err := daterange.ParseDay(rawOut)
	if err != nil {
		badRequest(c, "invalid date "+rawOut)
		return time.Time{}, time.Time{}, false
	}
	return in, out, true
}

var _ AvailabilityHTTP = AvailabilityHandler{}
