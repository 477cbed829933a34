package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/dto"
	promotionapp "hotelres/internal/app/handlers/promotions"
	"hotelres/internal/app/queries"
)

type PromotionHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type validatePromoRequest struct {
	Code       string `json:"code"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	CustomerID string `json:"customer_id"`
}

// Validate previews a code. It never consumes a usage.
func (h PromotionHandler) Validate(c *gin.Context) {
	var req validatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	query := promotionapp.ValidatePromoQuery{
		Code:       req.Code,
		Amount:     req.Amount,
		Currency:   req.Currency,
		CustomerID: req.CustomerID,
	}
	result, err := queries.Ask[promotionapp.ValidatePromoQuery, *dto.PromoValidation](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PromotionHandler) Active(c *gin.Context) {
	result, err := queries.Ask[promotionapp.ListActivePromotionsQuery, *dto.PromotionCollection](c.Request.Context(), h.Queries, promotionapp.ListActivePromotionsQuery{})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PromotionHandler) Stats(c *gin.Context) {
	query := promotionapp.PromotionStatsQuery{Code: c.Param("code")}
	result, err := queries.Ask[promotionapp.PromotionStatsQuery, *dto.PromotionStats](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (h PromotionHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Active == nil {
		badRequest(c, "active is required")
		return
	}
	cmd := promotionapp.SetPromotionActiveCommand{Code: c.Param("code"), Active: *req.Active}
	result, err := commands.Dispatch[promotionapp.SetPromotionActiveCommand, *dto.Promotion](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PromotionHTTP = PromotionHandler{}
